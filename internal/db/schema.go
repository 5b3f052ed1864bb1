package db

import (
	"context"
	"fmt"
)

// SchemaSQL creates the pre-ingested Ontario tables. Idempotent; the
// ingestion pipeline runs it before loading and the integration tests run
// it against a fresh container.
const SchemaSQL = `
CREATE EXTENSION IF NOT EXISTS postgis;

-- Named areas resolvable by the geometry lookup.
CREATE TABLE IF NOT EXISTS ontario_parks (
    park_id        SERIAL PRIMARY KEY,
    park_name      TEXT NOT NULL,
    park_class     TEXT,
    area_ha        DOUBLE PRECISION,
    geometry       GEOMETRY(MULTIPOLYGON, 4326) NOT NULL,
    data_source    TEXT
);

CREATE TABLE IF NOT EXISTS ontario_conservation_authorities (
    authority_id   SERIAL PRIMARY KEY,
    authority_name TEXT NOT NULL,
    geometry       GEOMETRY(MULTIPOLYGON, 4326) NOT NULL,
    data_source    TEXT
);

CREATE TABLE IF NOT EXISTS ontario_first_nations (
    community_id   SERIAL PRIMARY KEY,
    community_name TEXT NOT NULL,
    treaty_name    TEXT,
    geometry       GEOMETRY(MULTIPOLYGON, 4326) NOT NULL,
    data_source    TEXT
);

-- Datasets served by the spatial handler.
CREATE TABLE IF NOT EXISTS ontario_water_advisories (
    advisory_id         SERIAL PRIMARY KEY,
    community_name      TEXT,
    first_nation        TEXT,
    advisory_type       TEXT,
    advisory_date       DATE,
    lift_date           DATE,
    duration_days       INTEGER,
    is_active           BOOLEAN,
    reason              TEXT,
    water_system_name   TEXT,
    population_affected INTEGER,
    geometry            GEOMETRY(POINT, 4326),
    data_source         TEXT
);

CREATE TABLE IF NOT EXISTS ontario_fire_incidents (
    fire_id       SERIAL PRIMARY KEY,
    fire_number   TEXT,
    fire_year     INTEGER,
    fire_name     TEXT,
    ignition_date DATE,
    out_date      DATE,
    area_ha       DOUBLE PRECISION,
    fire_cause    TEXT,
    fire_region   TEXT,
    fuel_type     TEXT,
    geometry      GEOMETRY(GEOMETRY, 4326),
    data_source   TEXT
);

CREATE TABLE IF NOT EXISTS ontario_indigenous_infrastructure (
    project_id              SERIAL PRIMARY KEY,
    community_name          TEXT,
    first_nation            TEXT,
    project_name            TEXT,
    infrastructure_category TEXT,
    infrastructure_type     TEXT,
    project_status          TEXT,
    project_start_date      DATE,
    project_completion_date DATE,
    funding_amount          DOUBLE PRECISION,
    funding_source          TEXT,
    asset_condition         TEXT,
    within_williams_treaty  BOOLEAN,
    geometry                GEOMETRY(POINT, 4326),
    data_source             TEXT
);

CREATE TABLE IF NOT EXISTS ontario_community_wellbeing (
    csd_code               TEXT,
    community_name         TEXT,
    community_type         TEXT,
    census_year            INTEGER,
    population             INTEGER,
    cwb_score              DOUBLE PRECISION,
    education_score        DOUBLE PRECISION,
    labour_force_score     DOUBLE PRECISION,
    income_score           DOUBLE PRECISION,
    housing_score          DOUBLE PRECISION,
    within_williams_treaty BOOLEAN,
    geometry               GEOMETRY(GEOMETRY, 4326),
    data_source            TEXT,
    PRIMARY KEY (csd_code, census_year)
);

CREATE INDEX IF NOT EXISTS idx_parks_geom ON ontario_parks USING GIST (geometry);
CREATE INDEX IF NOT EXISTS idx_conservation_geom ON ontario_conservation_authorities USING GIST (geometry);
CREATE INDEX IF NOT EXISTS idx_first_nations_geom ON ontario_first_nations USING GIST (geometry);
CREATE INDEX IF NOT EXISTS idx_water_advisories_geom ON ontario_water_advisories USING GIST (geometry);
CREATE INDEX IF NOT EXISTS idx_fire_incidents_geom ON ontario_fire_incidents USING GIST (geometry);
CREATE INDEX IF NOT EXISTS idx_infrastructure_geom ON ontario_indigenous_infrastructure USING GIST (geometry);
CREATE INDEX IF NOT EXISTS idx_wellbeing_geom ON ontario_community_wellbeing USING GIST (geometry);
`

// InitSchema creates all tables and indexes.
func (c *Client) InitSchema(ctx context.Context) error {
	c.logger.Info("initializing database schema")
	if _, err := c.db.ExecContext(ctx, SchemaSQL); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}
