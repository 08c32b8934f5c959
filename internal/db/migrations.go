// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package db

var sqlMigrations = map[string]string{
	"001_initial.down.sql": `
		DROP TABLE training_runs;
		DROP TABLE compatibilities;
		DROP TABLE plants;
		DROP INDEX gardens_owner_idx;
		DROP TABLE gardens;
		DROP TABLE users;
	`,
	"001_initial.up.sql": `
		CREATE TABLE users (
			id          TEXT    NOT NULL PRIMARY KEY,
			document    TEXT    NOT NULL DEFAULT '{}',
			cluster_id  BIGINT  DEFAULT NULL
		);

		CREATE TABLE gardens (
			id        TEXT     NOT NULL PRIMARY KEY,
			owner_id  TEXT     NOT NULL REFERENCES users ON DELETE CASCADE,
			active    BOOLEAN  NOT NULL DEFAULT TRUE,
			document  TEXT     NOT NULL DEFAULT '{}'
		);
		CREATE INDEX gardens_owner_idx ON gardens (owner_id);

		CREATE TABLE plants (
			id        BIGINT  NOT NULL PRIMARY KEY,
			document  TEXT    NOT NULL DEFAULT '{}'
		);

		CREATE TABLE compatibilities (
			species1       TEXT  NOT NULL,
			species2       TEXT  NOT NULL,
			compatibility  REAL  NOT NULL,
			PRIMARY KEY (species1, species2)
		);

		CREATE TABLE training_runs (
			uuid           TEXT       NOT NULL PRIMARY KEY,
			started_at     TIMESTAMP  NOT NULL,
			finished_at    TIMESTAMP  NOT NULL,
			cluster_count  INT        NOT NULL DEFAULT 0,
			sample_count   INT        NOT NULL DEFAULT 0,
			silhouette     REAL       NOT NULL DEFAULT 0,
			cost           REAL       NOT NULL DEFAULT 0,
			cluster_sizes  TEXT       NOT NULL DEFAULT '[]',
			model_version  TEXT       NOT NULL,
			success        BOOLEAN    NOT NULL,
			error_message  TEXT       NOT NULL DEFAULT ''
		);
	`,
}
