package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"presencebot/internal/geo"
)

const (
	defaultTimezone     = "Europe/Rome"
	defaultRadiusMeters = 200
	defaultMorningAt    = "08:30"
	defaultAfternoonAt  = "16:00"
	defaultWorkbookPath = "registro.xlsx"
)

// App is the structured application config loaded from a YAML file. Secrets
// (bot token, webhook secret) stay in the environment and are not part of it.
type App struct {
	Timezone     string       `yaml:"timezone"`
	WorkbookPath string       `yaml:"workbook_path"`
	RadiusMeters float64      `yaml:"default_radius_meters"`
	Triggers     Triggers     `yaml:"reminders"`
	AdminIDs     []int64      `yaml:"admin_ids"`
	Zones        []ZoneConfig `yaml:"zones"`

	location *time.Location
}

// Triggers holds the daily reminder times as local HH:MM strings.
type Triggers struct {
	MorningAt   string `yaml:"morning_at"`
	AfternoonAt string `yaml:"afternoon_at"`
}

// ZoneConfig is a statically configured fallback zone.
type ZoneConfig struct {
	Name         string  `yaml:"name"`
	Lat          float64 `yaml:"lat"`
	Lon          float64 `yaml:"lon"`
	RadiusMeters float64 `yaml:"radius_meters"`
}

// Load reads and validates the YAML config at path. A missing file yields the
// defaults: no static zones, no admins, Europe/Rome, 08:30/16:00 triggers.
func Load(path string) (*App, error) {
	app := &App{}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, app); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := app.applyDefaults(); err != nil {
		return nil, err
	}
	return app, nil
}

func (a *App) applyDefaults() error {
	if a.Timezone == "" {
		a.Timezone = defaultTimezone
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", a.Timezone, err)
	}
	a.location = loc

	if a.WorkbookPath == "" {
		a.WorkbookPath = defaultWorkbookPath
	}
	if a.RadiusMeters <= 0 {
		a.RadiusMeters = defaultRadiusMeters
	}
	if a.Triggers.MorningAt == "" {
		a.Triggers.MorningAt = defaultMorningAt
	}
	if a.Triggers.AfternoonAt == "" {
		a.Triggers.AfternoonAt = defaultAfternoonAt
	}
	for _, at := range []string{a.Triggers.MorningAt, a.Triggers.AfternoonAt} {
		if _, err := time.Parse("15:04", at); err != nil {
			return fmt.Errorf("invalid reminder time %q: %w", at, err)
		}
	}
	for i, z := range a.Zones {
		if z.Name == "" {
			return fmt.Errorf("zone %d: name is required", i)
		}
		if z.RadiusMeters <= 0 {
			a.Zones[i].RadiusMeters = a.RadiusMeters
		}
	}
	return nil
}

// Location returns the parsed timezone.
func (a *App) Location() *time.Location {
	return a.location
}

// StaticZones returns the configured fallback zones in file order.
func (a *App) StaticZones() []geo.Zone {
	out := make([]geo.Zone, 0, len(a.Zones))
	for _, z := range a.Zones {
		out = append(out, geo.Zone{Name: z.Name, Lat: z.Lat, Lon: z.Lon, RadiusMeters: z.RadiusMeters})
	}
	return out
}

// IsAdmin reports whether id is in the static admin allowlist. An empty
// allowlist authorizes no one.
func (a *App) IsAdmin(id int64) bool {
	for _, admin := range a.AdminIDs {
		if admin == id {
			return true
		}
	}
	return false
}
