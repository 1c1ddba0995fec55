package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefault(t *testing.T) {
	dir, err := ioutil.TempDir("", "gekkodbg-config")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	os.Setenv("GEKKODBG_HOME", dir)
	defer os.Unsetenv("GEKKODBG_HOME")

	conf := LoadConfig()
	if conf == nil {
		t.Fatal("LoadConfig returned nil")
	}
	if conf.CacheSize() != DefaultConditionCacheSize {
		t.Errorf("CacheSize() = %d, want default %d", conf.CacheSize(), DefaultConditionCacheSize)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yml")); err != nil {
		t.Errorf("default config file not created: %v", err)
	}
}

func TestLoadConfigValues(t *testing.T) {
	dir, err := ioutil.TempDir("", "gekkodbg-config")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	os.Setenv("GEKKODBG_HOME", dir)
	defer os.Unsetenv("GEKKODBG_HOME")

	data := []byte("aliases:\n  cond: [\"print\"]\ncondition-cache-size: 16\ntrace-zero-results: true\n")
	if err := ioutil.WriteFile(filepath.Join(dir, "config.yml"), data, 0600); err != nil {
		t.Fatal(err)
	}

	conf := LoadConfig()
	if conf.CacheSize() != 16 {
		t.Errorf("CacheSize() = %d, want 16", conf.CacheSize())
	}
	if !conf.TraceZeroResults {
		t.Error("TraceZeroResults not loaded")
	}
	if got := conf.Aliases["cond"]; len(got) != 1 || got[0] != "print" {
		t.Errorf("Aliases[cond] = %v, want [print]", got)
	}
}
