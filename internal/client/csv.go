package client

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/poivault/poivault-go/internal/crypto"
	"github.com/poivault/poivault-go/internal/model"
)

var (
	// ErrInvalidRow marks a CSV row that was skipped.
	ErrInvalidRow = errors.New("invalid row")
	// ErrMissingColumns is returned when the header lacks a required column.
	ErrMissingColumns = errors.New("csv must contain name, latitude and longitude columns")
)

// RowError describes one skipped CSV row.
type RowError struct {
	Line   int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

func (e *RowError) Unwrap() error { return ErrInvalidRow }

// Import is the result of reading a POI CSV.
type Import struct {
	POIs    []model.CreatePOIRequest
	Skipped []*RowError
}

type columns struct {
	name, lat, lng, description, category int
}

// ReadPOICSV reads rows with name, latitude and longitude columns (and
// optional description and category), encrypting coordinates with cipher.
// Headers are matched case-insensitively. Rows with a blank name or
// unparsable or out-of-range coordinates are skipped and reported.
func ReadPOICSV(r io.Reader, cipher *crypto.CoordinateCipher) (Import, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Import{}, ErrMissingColumns
		}
		return Import{}, fmt.Errorf("read header: %w", err)
	}
	cols, err := parseHeader(header)
	if err != nil {
		return Import{}, err
	}

	var out Import
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Import{}, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)

		poi, reason := buildPOI(record, cols, cipher)
		if reason != "" {
			out.Skipped = append(out.Skipped, &RowError{Line: line, Reason: reason})
			continue
		}
		out.POIs = append(out.POIs, poi)
	}
	return out, nil
}

func parseHeader(header []string) (columns, error) {
	cols := columns{name: -1, lat: -1, lng: -1, description: -1, category: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "name":
			cols.name = i
		case "latitude":
			cols.lat = i
		case "longitude":
			cols.lng = i
		case "description":
			cols.description = i
		case "category":
			cols.category = i
		}
	}
	if cols.name < 0 || cols.lat < 0 || cols.lng < 0 {
		return columns{}, ErrMissingColumns
	}
	return cols, nil
}

func buildPOI(record []string, cols columns, cipher *crypto.CoordinateCipher) (model.CreatePOIRequest, string) {
	field := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	name := field(cols.name)
	if name == "" {
		return model.CreatePOIRequest{}, "name is empty"
	}
	lat, err := strconv.ParseFloat(field(cols.lat), 64)
	if err != nil {
		return model.CreatePOIRequest{}, fmt.Sprintf("latitude %q is not a number", field(cols.lat))
	}
	lng, err := strconv.ParseFloat(field(cols.lng), 64)
	if err != nil {
		return model.CreatePOIRequest{}, fmt.Sprintf("longitude %q is not a number", field(cols.lng))
	}

	ctLat, ctLng, err := cipher.Encrypt(lat, lng)
	if err != nil {
		return model.CreatePOIRequest{}, err.Error()
	}

	return model.CreatePOIRequest{
		Name:         name,
		EncryptedLat: ctLat,
		EncryptedLng: ctLng,
		Description:  field(cols.description),
		Category:     field(cols.category),
	}, ""
}

// Batches splits pois into slices of at most size elements.
func Batches(pois []model.CreatePOIRequest, size int) [][]model.CreatePOIRequest {
	var out [][]model.CreatePOIRequest
	for size > 0 && len(pois) > 0 {
		n := min(size, len(pois))
		out = append(out, pois[:n])
		pois = pois[n:]
	}
	return out
}
