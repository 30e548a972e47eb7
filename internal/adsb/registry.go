package adsb

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dimchansky/utfbom"
	"github.com/gocarina/gocsv"

	"github.com/macman10536/Adsb-alert/pkg/logger"
)

// masterFile is the registration table inside the FAA ReleasableAircraft.zip
const masterFile = "MASTER.txt"

// masterRecord is the subset of FAA MASTER.txt columns used for display
type masterRecord struct {
	NNumber      string `csv:"N-NUMBER"`
	ModeSCodeHex string `csv:"MODE S CODE HEX"`
}

// Registry maps hex ids to display registrations. The zero value is an empty registry.
type Registry struct {
	byHex map[string]string
}

// Lookup returns the registration for a hex id, case-insensitively
func (r Registry) Lookup(hex string) (string, bool) {
	reg, ok := r.byHex[strings.ToUpper(strings.TrimSpace(hex))]
	return reg, ok
}

// Len returns the number of known registrations
func (r Registry) Len() int {
	return len(r.byHex)
}

// LoadRegistrationDB loads a registration database by file extension:
// .json is an object of hex to registration, .txt and .csv are FAA MASTER files,
// .zip is the FAA ReleasableAircraft archive. A missing file yields an empty registry.
func LoadRegistrationDB(path string, log *logger.Logger) (Registry, error) {
	log = log.Named("registry")
	if path == "" {
		return Registry{}, nil
	}

	var (
		byHex map[string]string
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		byHex, err = loadJSONRegistry(path)
	case ".txt", ".csv":
		byHex, err = loadMasterFile(path)
	case ".zip":
		byHex, err = loadMasterZip(path)
	default:
		return Registry{}, fmt.Errorf("unsupported registration database format: %s", path)
	}

	if errors.Is(err, fs.ErrNotExist) {
		log.Info("Registration database not found, registrations will be unavailable",
			logger.String("path", path))
		return Registry{}, nil
	}
	if err != nil {
		return Registry{}, err
	}

	log.Info("Loaded registration database",
		logger.String("path", path),
		logger.Int("entries", len(byHex)))
	return Registry{byHex: byHex}, nil
}

func loadJSONRegistry(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registration database: %w", err)
	}
	defer f.Close()

	var raw map[string]string
	if err := json.NewDecoder(utfbom.SkipOnly(f)).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse registration database: %w", err)
	}

	byHex := make(map[string]string, len(raw))
	for hex, reg := range raw {
		hex = strings.ToUpper(strings.TrimSpace(hex))
		reg = strings.TrimSpace(reg)
		if hex == "" || reg == "" {
			continue
		}
		byHex[hex] = reg
	}
	return byHex, nil
}

func loadMasterFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registration database: %w", err)
	}
	defer f.Close()
	return parseMaster(f)
}

func loadMasterZip(path string) (map[string]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registration archive: %w", err)
	}
	defer zr.Close()

	for _, file := range zr.File {
		if !strings.EqualFold(filepath.Base(file.Name), masterFile) {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s in archive: %w", masterFile, err)
		}
		defer rc.Close()
		return parseMaster(rc)
	}
	return nil, fmt.Errorf("%s not found in %s", masterFile, path)
}

func parseMaster(r io.Reader) (map[string]string, error) {
	var records []*masterRecord
	// FAA files quote loosely
	if err := gocsv.UnmarshalCSV(gocsv.LazyCSVReader(utfbom.SkipOnly(r)), &records); err != nil {
		return nil, fmt.Errorf("failed to parse registration file: %w", err)
	}

	byHex := make(map[string]string, len(records))
	for _, rec := range records {
		hex := strings.ToUpper(strings.TrimSpace(rec.ModeSCodeHex))
		nnum := strings.TrimSpace(rec.NNumber)
		if hex == "" || nnum == "" {
			continue
		}
		byHex[hex] = "N" + nnum
	}
	return byHex, nil
}
