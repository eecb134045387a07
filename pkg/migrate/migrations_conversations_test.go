package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConversationsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_conversations.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no conversations migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS conversations",
		"FOREIGN KEY (inbox_id) REFERENCES inboxes(id) ON DELETE CASCADE",
		"FOREIGN KEY (assigned_agent_id) REFERENCES users(id) ON DELETE SET NULL",
		"WHERE assigned_agent_id IS NULL",
		"DROP TABLE IF EXISTS conversations",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOutboxMigrationGuardsDuplicateEvents(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_outbox_events.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no outbox migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	if !strings.Contains(content, "ux_outbox_events_event_aggregate") {
		t.Error("missing unique event/aggregate index")
	}
	if !strings.Contains(content, "outbox_dlq") {
		t.Error("missing dead letter table")
	}
}
