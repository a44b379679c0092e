package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("bad audit line %q: %v", scanner.Text(), err)
		}
		events = append(events, ev)
	}
	return events
}

func TestU_Audit_HashChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	if err := InitFile(path); err != nil {
		t.Fatal(err)
	}

	first := NewEvent(EventSign, ResultSuccess)
	first.Asset = "a.jpg"
	if err := Record(first); err != nil {
		t.Fatal(err)
	}
	second := NewEvent(EventVerify, ResultFailure)
	second.Errors = 2
	if err := Record(second); err != nil {
		t.Fatal(err)
	}
	if err := Close(); err != nil {
		t.Fatal(err)
	}

	events := readEvents(t, path)
	if len(events) != 2 {
		t.Fatalf("event count %d", len(events))
	}
	if events[0].HashPrev != GenesisHash {
		t.Errorf("first hash_prev %q", events[0].HashPrev)
	}
	if events[1].HashPrev != events[0].Hash {
		t.Errorf("chain broken: %q != %q", events[1].HashPrev, events[0].Hash)
	}
	if !strings.HasPrefix(events[0].Hash, "sha256:") {
		t.Errorf("hash %q", events[0].Hash)
	}
}

func TestU_Audit_ChainSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	if err := InitFile(path); err != nil {
		t.Fatal(err)
	}
	if err := Record(NewEvent(EventSign, ResultSuccess)); err != nil {
		t.Fatal(err)
	}
	if err := Close(); err != nil {
		t.Fatal(err)
	}

	if err := InitFile(path); err != nil {
		t.Fatal(err)
	}
	if err := Record(NewEvent(EventEmbed, ResultSuccess)); err != nil {
		t.Fatal(err)
	}
	if err := Close(); err != nil {
		t.Fatal(err)
	}

	events := readEvents(t, path)
	if len(events) != 2 {
		t.Fatalf("event count %d", len(events))
	}
	if events[1].HashPrev != events[0].Hash {
		t.Errorf("chain broken across reopen")
	}
}

func TestU_Audit_DisabledIsNop(t *testing.T) {
	if err := Record(NewEvent(EventSign, ResultSuccess)); err != nil {
		t.Errorf("record without init must be a no-op, got %v", err)
	}
}
