package db

import (
	"strings"
	"testing"
)

func TestSchemaEmbedded(t *testing.T) {
	for _, table := range []string{"submissions", "votes", "boards", "board_items", "board_votes", "api_tokens", "schema_version"} {
		if !strings.Contains(schemaSQL, "CREATE TABLE IF NOT EXISTS "+table+" ") {
			t.Errorf("schema is missing table %s", table)
		}
	}
}

func TestSchemaVoteUniqueness(t *testing.T) {
	for _, idx := range []string{
		"uq_votes_submission_user",
		"uq_votes_submission_fingerprint",
		"uq_board_votes_item_user",
		"uq_board_votes_item_token",
	} {
		if !strings.Contains(schemaSQL, "CREATE UNIQUE INDEX IF NOT EXISTS "+idx) {
			t.Errorf("schema is missing unique index %s", idx)
		}
	}
}
