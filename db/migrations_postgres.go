package db

// PostgreSQL-specific migrations for the visibility engine

var postgresMigrations = []Migration{
	{
		Version: 1,
		Name:    "create_visibility_reports_table",
		Up: `
			CREATE TABLE IF NOT EXISTS visibility_reports (
				id TEXT PRIMARY KEY,
				site_id TEXT NOT NULL UNIQUE,
				url TEXT NOT NULL,
				report TEXT NOT NULL,
				coverage_score INTEGER NOT NULL DEFAULT 0,
				slug TEXT,
				created_at TIMESTAMPTZ DEFAULT NOW(),
				updated_at TIMESTAMPTZ DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_visibility_reports_site_id ON visibility_reports(site_id);
			CREATE INDEX IF NOT EXISTS idx_visibility_reports_created_at ON visibility_reports(created_at);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_visibility_reports_created_at;
			DROP INDEX IF EXISTS idx_visibility_reports_site_id;
			DROP TABLE IF EXISTS visibility_reports;
		`,
	},
	{
		Version: 2,
		Name:    "create_visibility_schema_version_table",
		Up: `
			CREATE TABLE IF NOT EXISTS visibility_schema_version (
				version INTEGER PRIMARY KEY,
				name TEXT NOT NULL,
				applied_at TIMESTAMPTZ DEFAULT NOW()
			);
		`,
		Down: `
			DROP TABLE IF EXISTS visibility_schema_version;
		`,
	},
	{
		Version: 3,
		Name:    "create_visibility_entity_results_table",
		Up: `
			CREATE TABLE IF NOT EXISTS visibility_entity_results (
				id TEXT PRIMARY KEY,
				site_id TEXT NOT NULL,
				entity_name TEXT NOT NULL,
				entity_type TEXT,
				mention_count DOUBLE PRECISION NOT NULL DEFAULT 0,
				gap BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMPTZ DEFAULT NOW(),
				FOREIGN KEY (site_id) REFERENCES visibility_reports(site_id) ON DELETE CASCADE
			);
			CREATE INDEX IF NOT EXISTS idx_entity_results_site_id ON visibility_entity_results(site_id);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_entity_results_site_id;
			DROP TABLE IF EXISTS visibility_entity_results;
		`,
	},
	{
		Version: 4,
		Name:    "create_visibility_score_sets_table",
		Up: `
			CREATE TABLE IF NOT EXISTS visibility_score_sets (
				id TEXT PRIMARY KEY,
				site_id TEXT NOT NULL UNIQUE,
				url TEXT,
				scores TEXT NOT NULL,
				analysis_method TEXT,
				created_at TIMESTAMPTZ DEFAULT NOW(),
				updated_at TIMESTAMPTZ DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_score_sets_site_id ON visibility_score_sets(site_id);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_score_sets_site_id;
			DROP TABLE IF EXISTS visibility_score_sets;
		`,
	},
	{
		Version: 5,
		Name:    "add_slug_index_to_visibility_reports",
		Up: `
			CREATE INDEX IF NOT EXISTS idx_visibility_reports_slug ON visibility_reports(slug);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_visibility_reports_slug;
		`,
	},
	{
		Version: 6,
		Name:    "add_gap_index_to_entity_results",
		Up: `
			CREATE INDEX IF NOT EXISTS idx_entity_results_gap ON visibility_entity_results(site_id, gap);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_entity_results_gap;
		`,
	},
}
