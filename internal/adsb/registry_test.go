package adsb

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/macman10536/Adsb-alert/pkg/logger"
)

const masterSample = "\xEF\xBB\xBFN-NUMBER,SERIAL NUMBER,MODE S CODE,MODE S CODE HEX,\n" +
	"12345,SN1,50443015,A1B2C3    ,\n" +
	"9AB  ,SN2,51234567,ABCDEF    ,\n" +
	"777  ,SN3,51234568,          ,\n"

func TestLoadRegistrationDBJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reg.json")
	if err := os.WriteFile(path, []byte(`{"a1b2c3": "N12345", "ABCDEF": "C-GABC", "": "X"}`), 0o644); err != nil {
		t.Fatalf("Failed to write db: %v", err)
	}

	reg, err := LoadRegistrationDB(path, logger.NewNop())
	if err != nil {
		t.Fatalf("LoadRegistrationDB failed: %v", err)
	}
	if reg.Len() != 2 {
		t.Errorf("Expected 2 entries, got %d", reg.Len())
	}
	if got, ok := reg.Lookup("A1B2C3"); !ok || got != "N12345" {
		t.Errorf("Expected N12345, got %q (%v)", got, ok)
	}
	if got, ok := reg.Lookup("abcdef"); !ok || got != "C-GABC" {
		t.Errorf("Expected C-GABC, got %q (%v)", got, ok)
	}
}

func TestLoadRegistrationDBMaster(t *testing.T) {
	path := filepath.Join(t.TempDir(), "MASTER.txt")
	if err := os.WriteFile(path, []byte(masterSample), 0o644); err != nil {
		t.Fatalf("Failed to write db: %v", err)
	}

	reg, err := LoadRegistrationDB(path, logger.NewNop())
	if err != nil {
		t.Fatalf("LoadRegistrationDB failed: %v", err)
	}
	if reg.Len() != 2 {
		t.Errorf("Expected 2 entries, got %d", reg.Len())
	}
	if got, _ := reg.Lookup("a1b2c3"); got != "N12345" {
		t.Errorf("Expected N12345, got %q", got)
	}
	if got, _ := reg.Lookup("ABCDEF"); got != "N9AB" {
		t.Errorf("Expected N9AB, got %q", got)
	}
}

func TestLoadRegistrationDBZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ReleasableAircraft.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create archive: %v", err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("MASTER.txt")
	if err != nil {
		t.Fatalf("Failed to add entry: %v", err)
	}
	if _, err := w.Write([]byte(masterSample)); err != nil {
		t.Fatalf("Failed to write entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to close archive: %v", err)
	}
	f.Close()

	reg, err := LoadRegistrationDB(path, logger.NewNop())
	if err != nil {
		t.Fatalf("LoadRegistrationDB failed: %v", err)
	}
	if got, _ := reg.Lookup("a1b2c3"); got != "N12345" {
		t.Errorf("Expected N12345, got %q", got)
	}
}

func TestLoadRegistrationDBMissing(t *testing.T) {
	reg, err := LoadRegistrationDB(filepath.Join(t.TempDir(), "missing.json"), logger.NewNop())
	if err != nil {
		t.Fatalf("Expected missing file to be tolerated, got %v", err)
	}
	if _, ok := reg.Lookup("a1b2c3"); ok {
		t.Error("Expected empty registry")
	}
}

func TestLoadRegistrationDBUnsupported(t *testing.T) {
	if _, err := LoadRegistrationDB("reg.xml", logger.NewNop()); err == nil {
		t.Error("Expected error for unsupported format")
	}
}
