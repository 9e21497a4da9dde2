// Command poictl encrypts coordinates locally and talks to a poivault server.
//
//	poictl [global flags] <command> [flags] [args]
//
// Commands: encrypt, decrypt, login, import, search, history.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/poivault/poivault-go/internal/client"
	"github.com/poivault/poivault-go/internal/crypto"
	"github.com/poivault/poivault-go/internal/logging"
	"github.com/poivault/poivault-go/internal/model"
	"go.uber.org/zap"
)

var errUsage = errors.New("usage: poictl [-url URL] [-token TOKEN] [-key KEY] <encrypt|decrypt|login|import|search|history> [args]")

func main() {
	_ = godotenv.Load()

	logger, err := logging.Init(logging.Config{Level: getEnv("LOG_LEVEL", "warn"), Dev: true})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, logger); err != nil {
		fmt.Fprintln(os.Stderr, "poictl:", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

type app struct {
	out    io.Writer
	logger *zap.Logger
	cipher *crypto.CoordinateCipher
	api    *client.Client
}

func run(ctx context.Context, args []string, out io.Writer, logger *zap.Logger) error {
	fs := flag.NewFlagSet("poictl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	baseURL := fs.String("url", getEnv("POIVAULT_URL", "http://localhost:8080"), "server base URL")
	token := fs.String("token", os.Getenv("POIVAULT_TOKEN"), "bearer token")
	key := fs.String("key", getEnv("COORDINATE_KEY", "your-private-key"), "coordinate passphrase")
	timeout := fs.Duration("timeout", 30*time.Second, "HTTP timeout")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	a := &app{
		out:    out,
		logger: logger,
		cipher: crypto.NewCoordinateCipher(*key),
		api:    client.New(*baseURL, *token, *timeout),
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "encrypt":
		return a.encrypt(rest)
	case "decrypt":
		return a.decrypt(rest)
	case "login":
		return a.login(ctx, rest)
	case "import":
		return a.importCSV(ctx, rest)
	case "search":
		return a.search(ctx, rest)
	case "history":
		return a.history(ctx)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func (a *app) encrypt(args []string) error {
	switch len(args) {
	case 1:
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("parse value: %w", err)
		}
		ct, err := a.cipher.EncryptScalar(v)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, ct)
	case 2:
		lat, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("parse latitude: %w", err)
		}
		lng, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("parse longitude: %w", err)
		}
		ctLat, ctLng, err := a.cipher.Encrypt(lat, lng)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, ctLat)
		fmt.Fprintln(a.out, ctLng)
	default:
		return fmt.Errorf("%w: encrypt <value> | encrypt <lat> <lng>", errUsage)
	}
	return nil
}

func (a *app) decrypt(args []string) error {
	switch len(args) {
	case 1:
		v, err := a.cipher.DecryptScalar(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, strconv.FormatFloat(v, 'f', -1, 64))
	case 2:
		lat, lng, err := a.cipher.Decrypt(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s %s\n", strconv.FormatFloat(lat, 'f', -1, 64), strconv.FormatFloat(lng, 'f', -1, 64))
	default:
		return fmt.Errorf("%w: decrypt <ciphertext> | decrypt <ctLat> <ctLng>", errUsage)
	}
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil || *email == "" || *password == "" {
		return fmt.Errorf("%w: login -email EMAIL -password PASSWORD", errUsage)
	}

	auth, err := a.api.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, auth.Token)
	return nil
}

func (a *app) importCSV(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	batch := fs.Int("batch", client.MaxBatch, "POIs per bulk request")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 || *batch < 1 || *batch > client.MaxBatch {
		return fmt.Errorf("%w: import [-batch N] <file.csv>", errUsage)
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	imp, err := client.ReadPOICSV(f, a.cipher)
	if err != nil {
		return err
	}
	for _, s := range imp.Skipped {
		a.logger.Warn("skipping csv row", zap.Int("line", s.Line), zap.String("reason", s.Reason))
	}
	if len(imp.POIs) == 0 {
		return errors.New("no valid POIs found in the CSV")
	}

	total := 0
	for _, b := range client.Batches(imp.POIs, *batch) {
		created, err := a.api.BulkCreate(ctx, b)
		if err != nil {
			return fmt.Errorf("after %d imported: %w", total, err)
		}
		total += len(created)
	}

	fmt.Fprintf(a.out, "imported %d POIs, skipped %d rows\n", total, len(imp.Skipped))
	return nil
}

func (a *app) search(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	lat := fs.Float64("lat", 0, "center latitude")
	lng := fs.Float64("lng", 0, "center longitude")
	radius := fs.Float64("radius", 0, "radius in meters (server default when 0)")
	if err := fs.Parse(args); err != nil || *radius < 0 {
		return fmt.Errorf("%w: search -lat LAT -lng LNG [-radius METERS]", errUsage)
	}

	var q model.SearchQuery
	var err error
	if q.EncryptedLat, q.EncryptedLng, err = a.cipher.Encrypt(*lat, *lng); err != nil {
		return err
	}
	if *radius > 0 {
		if q.EncryptedRadius, err = a.cipher.EncryptScalar(*radius); err != nil {
			return err
		}
	}

	results, err := a.api.Search(ctx, q)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tLAT\tLNG\tDISTANCE_KM\tCATEGORY")
	for _, r := range results {
		plat, plng, err := a.cipher.Decrypt(r.EncryptedLat, r.EncryptedLng)
		if err != nil {
			a.logger.Warn("cannot decrypt result", zap.String("id", r.ID.Hex()), zap.Error(err))
			continue
		}
		dist := "-"
		if r.Distance != nil {
			dist = strconv.FormatFloat(*r.Distance, 'f', 3, 64)
		}
		fmt.Fprintf(tw, "%s\t%.6f\t%.6f\t%s\t%s\n", r.Name, plat, plng, dist, r.Category)
	}
	return tw.Flush()
}

func (a *app) history(ctx context.Context) error {
	entries, err := a.api.History(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tLAT\tLNG\tRADIUS_M")
	for _, e := range entries {
		lat, lng, radius := "?", "?", "default"
		if v, err := a.cipher.DecryptScalar(e.Query.EncryptedLat); err == nil {
			lat = strconv.FormatFloat(v, 'f', -1, 64)
		}
		if v, err := a.cipher.DecryptScalar(e.Query.EncryptedLng); err == nil {
			lng = strconv.FormatFloat(v, 'f', -1, 64)
		}
		if e.Query.EncryptedRadius != "" {
			radius = "?"
			if v, err := a.cipher.DecryptScalar(e.Query.EncryptedRadius); err == nil {
				radius = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Timestamp.Format(time.RFC3339), lat, lng, radius)
	}
	return tw.Flush()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
