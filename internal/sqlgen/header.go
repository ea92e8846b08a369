//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package sqlgen

import (
	"fmt"
	"strings"
)

// Script headers follow a fixed shape: a banner describing the script, a
// confirmation DO block that announces what is about to run, and a
// commented-out psql prompt for operators who want a manual gate.

const uuidExtension = `-- Ensure uuid-ossp extension is available
CREATE EXTENSION IF NOT EXISTS "uuid-ossp";

`

const confirmTail = `-- Uncomment the lines below to require manual confirmation (recommended for first run)
-- Note: These are psql meta-commands that work in interactive psql sessions
-- \\prompt 'Type YES to confirm and continue with migration: ' user_confirmation
-- \\if :'user_confirmation' != 'YES'
--   \\echo 'Migration cancelled by user.'
--   \\quit
-- \\endif

`

type headerParams struct {
	// Title names the script, e.g. "USERS MIGRATION SQL".
	Title string
	// Source identifies the source database.
	Source string
	// ConfirmTitle heads the confirmation notice.
	ConfirmTitle string
	// Destination is the fully qualified target.
	Destination string
	// Records is the source row count.
	Records int
	// RecordsLabel overrides the "Records to migrate" banner line.
	RecordsLabel string
	// Important lines appear in the banner after the record count.
	Important []string
	// Trailer lines close the banner (guard notes, namespace, model).
	Trailer []string
	// ConfirmLines are RAISE NOTICE bodies between the migration line
	// and the Generated line.
	ConfirmLines []string
	// ConfirmMigrate is the "This script will migrate ..." notice.
	ConfirmMigrate string
	// Prerequisite adds a highlighted prerequisite notice block.
	Prerequisite string
	// UUIDExtension prepends CREATE EXTENSION uuid-ossp.
	UUIDExtension bool
}

func buildHeader(p headerParams) string {
	ts := generatedAt()

	var b strings.Builder
	b.WriteString("-- ============================================================\n")
	fmt.Fprintf(&b, "-- %s\n", p.Title)
	b.WriteString("-- ============================================================\n")
	fmt.Fprintf(&b, "-- Generated: %s\n", ts)
	fmt.Fprintf(&b, "-- Source: %s\n", p.Source)
	fmt.Fprintf(&b, "-- Destination: %s\n", p.Destination)
	label := p.RecordsLabel
	if label == "" {
		label = "Records to migrate"
	}
	fmt.Fprintf(&b, "-- %s: %d\n", label, p.Records)
	b.WriteString("-- \n")
	for _, line := range p.Important {
		fmt.Fprintf(&b, "-- IMPORTANT: %s\n", line)
	}
	b.WriteString("--\n")
	for _, line := range p.Trailer {
		fmt.Fprintf(&b, "-- %s\n", line)
	}
	b.WriteString("-- ============================================================\n\n")

	if p.UUIDExtension {
		b.WriteString(uuidExtension)
	}

	confirm := "CONFIRMATION PROMPT: User must confirm before execution"
	b.WriteString("-- " + confirm + "\n")
	b.WriteString("DO $$\nDECLARE\n    user_confirmation TEXT;\nBEGIN\n")
	b.WriteString("    RAISE NOTICE '';\n")
	b.WriteString("    RAISE NOTICE '============================================================';\n")
	fmt.Fprintf(&b, "    RAISE NOTICE '%s';\n", p.ConfirmTitle)
	b.WriteString("    RAISE NOTICE '============================================================';\n")
	fmt.Fprintf(&b, "    RAISE NOTICE '%s';\n", p.ConfirmMigrate)
	for _, line := range p.ConfirmLines {
		fmt.Fprintf(&b, "    RAISE NOTICE '%s';\n", line)
	}
	fmt.Fprintf(&b, "    RAISE NOTICE 'Generated: %s';\n", ts)
	b.WriteString("    RAISE NOTICE '============================================================';\n")
	if p.Prerequisite != "" {
		fmt.Fprintf(&b, "    RAISE NOTICE '%s';\n", p.Prerequisite)
		b.WriteString("    RAISE NOTICE '============================================================';\n")
	}
	b.WriteString("    RAISE NOTICE '';\n")
	b.WriteString("    \n")
	b.WriteString("    user_confirmation := NULL;\n")
	b.WriteString("    \n")
	b.WriteString("    IF current_setting('is_superuser') = 'off' THEN\n")
	b.WriteString("        RAISE NOTICE 'Ready to proceed. Press Ctrl+C to cancel or Enter to continue...';\n")
	b.WriteString("    END IF;\n")
	b.WriteString("    \n")
	b.WriteString("    RAISE NOTICE 'Starting migration...';\n")
	b.WriteString("    RAISE NOTICE '';\n")
	b.WriteString("END $$;\n\n")
	b.WriteString(confirmTail)

	return b.String()
}
