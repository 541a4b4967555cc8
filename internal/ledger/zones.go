package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"presencebot/internal/geo"
	"presencebot/internal/store"
)

// ZoneRegistry owns the set of authorized zones: dynamically administered
// entries in the workbook plus the static bootstrap list from config. Reads
// are served from an in-memory snapshot that is refreshed after every admin
// write; a stale read between a write and its refresh is acceptable.
type ZoneRegistry struct {
	wb            store.Workbook
	static        []geo.Zone
	defaultRadius float64

	mu      sync.RWMutex
	dynamic []geo.Zone
}

func NewZoneRegistry(wb store.Workbook, static []geo.Zone, defaultRadius float64) *ZoneRegistry {
	return &ZoneRegistry{wb: wb, static: static, defaultRadius: defaultRadius}
}

// Refresh reloads the dynamic zone snapshot from the workbook.
func (z *ZoneRegistry) Refresh(ctx context.Context) error {
	rows, err := z.wb.Rows(ctx, store.ZoneSheet)
	if err != nil {
		return err
	}
	zones := make([]geo.Zone, 0, len(rows))
	for _, row := range store.DataRows(rows) {
		zone, ok := z.zoneFromRow(row)
		if !ok {
			continue
		}
		zones = append(zones, zone)
	}

	z.mu.Lock()
	z.dynamic = zones
	z.mu.Unlock()
	return nil
}

// Zones returns the snapshot in resolution order: dynamic zones first, then
// the static bootstrap zones.
func (z *ZoneRegistry) Zones() []geo.Zone {
	z.mu.RLock()
	dynamic := z.dynamic
	z.mu.RUnlock()

	out := make([]geo.Zone, 0, len(dynamic)+len(z.static))
	out = append(out, dynamic...)
	out = append(out, z.static...)
	return out
}

// Resolve maps a coordinate to a zone name using the firstMatch policy.
func (z *ZoneRegistry) Resolve(lat, lon float64) (string, bool) {
	return geo.Resolve(z.Zones(), lat, lon)
}

// Add validates and appends a dynamic zone, then refreshes the snapshot.
// A non-positive radius falls back to the configured default.
func (z *ZoneRegistry) Add(ctx context.Context, zone geo.Zone) error {
	zone.Name = strings.TrimSpace(zone.Name)
	if zone.Name == "" {
		return fmt.Errorf("zone name is required")
	}
	if z.exists(zone.Name) {
		return fmt.Errorf("zone %q already exists", zone.Name)
	}
	if zone.RadiusMeters <= 0 {
		zone.RadiusMeters = z.defaultRadius
	}
	if err := z.wb.AppendRow(ctx, store.ZoneSheet, zoneRow(zone)); err != nil {
		return err
	}
	return z.Refresh(ctx)
}

// Rename changes a dynamic zone's name in place. It returns false when no
// dynamic zone has the old name; static bootstrap zones cannot be renamed.
func (z *ZoneRegistry) Rename(ctx context.Context, oldName, newName string) (bool, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return false, fmt.Errorf("zone name is required")
	}
	if z.exists(newName) {
		return false, fmt.Errorf("zone %q already exists", newName)
	}
	rows, err := z.wb.Rows(ctx, store.ZoneSheet)
	if err != nil {
		return false, err
	}
	for i, row := range store.DataRows(rows) {
		zone, ok := z.zoneFromRow(row)
		if !ok || zone.Name != oldName {
			continue
		}
		zone.Name = newName
		if err := z.wb.UpdateRow(ctx, store.ZoneSheet, i+2, zoneRow(zone)); err != nil {
			return false, err
		}
		return true, z.Refresh(ctx)
	}
	return false, nil
}

// Delete removes a dynamic zone. It returns false when the name is unknown.
func (z *ZoneRegistry) Delete(ctx context.Context, name string) (bool, error) {
	rows, err := z.wb.Rows(ctx, store.ZoneSheet)
	if err != nil {
		return false, err
	}
	for i, row := range store.DataRows(rows) {
		zone, ok := z.zoneFromRow(row)
		if !ok || zone.Name != name {
			continue
		}
		if err := z.wb.DeleteRow(ctx, store.ZoneSheet, i+2); err != nil {
			return false, err
		}
		return true, z.Refresh(ctx)
	}
	return false, nil
}

// Dynamic returns only the administered zones, for the admin list dialogue.
func (z *ZoneRegistry) Dynamic() []geo.Zone {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return append([]geo.Zone(nil), z.dynamic...)
}

// Find returns the zone with the given name, dynamic entries first.
func (z *ZoneRegistry) Find(name string) (geo.Zone, bool) {
	for _, zone := range z.Zones() {
		if zone.Name == name {
			return zone, true
		}
	}
	return geo.Zone{}, false
}

// ImportRows bulk-loads zones from spreadsheet rows (header row first). Column
// positions follow the header row, so exported files with reordered or
// localized headers still import. It returns the number of zones added; rows
// with an empty name or unparsable coordinates are skipped, duplicates are
// skipped.
func (z *ZoneRegistry) ImportRows(ctx context.Context, rows [][]string) (int, error) {
	if len(rows) < 2 {
		return 0, fmt.Errorf("no zone rows to import")
	}
	cols := zoneImportColumns(rows[0])
	added := 0
	for _, row := range store.DataRows(rows) {
		name := store.Cell(row, cols.name)
		lat, errLat := strconv.ParseFloat(store.Cell(row, cols.lat), 64)
		lon, errLon := strconv.ParseFloat(store.Cell(row, cols.lon), 64)
		if name == "" || errLat != nil || errLon != nil {
			continue
		}
		radius, err := strconv.ParseFloat(store.Cell(row, cols.radius), 64)
		if err != nil {
			radius = 0
		}
		if err := z.Add(ctx, geo.Zone{Name: name, Lat: lat, Lon: lon, RadiusMeters: radius}); err != nil {
			continue
		}
		added++
	}
	return added, nil
}

type zoneColumns struct {
	name, lat, lon, radius int
}

// zoneImportColumns resolves column indexes from the header row. Headers that
// match no known name leave the canonical Name,Latitude,Longitude,RadiusMeters
// positions in place.
func zoneImportColumns(header []string) zoneColumns {
	cols := zoneColumns{name: 0, lat: 1, lon: 2, radius: 3}
	for i, cell := range header {
		switch store.NormalizeHeader(cell) {
		case "name", "nome":
			cols.name = i
		case "latitude", "lat", "latitudine":
			cols.lat = i
		case "longitude", "lon", "lng", "longitudine":
			cols.lon = i
		case "radiusmeters", "radius", "raggio":
			cols.radius = i
		}
	}
	return cols
}

func (z *ZoneRegistry) exists(name string) bool {
	_, ok := z.Find(name)
	return ok
}

func (z *ZoneRegistry) zoneFromRow(row []string) (geo.Zone, bool) {
	name := store.Cell(row, 0)
	if name == "" {
		return geo.Zone{}, false
	}
	lat, errLat := strconv.ParseFloat(store.Cell(row, 1), 64)
	lon, errLon := strconv.ParseFloat(store.Cell(row, 2), 64)
	if errLat != nil || errLon != nil {
		return geo.Zone{}, false
	}
	radius, err := strconv.ParseFloat(store.Cell(row, 3), 64)
	if err != nil || radius <= 0 {
		radius = z.defaultRadius
	}
	return geo.Zone{Name: name, Lat: lat, Lon: lon, RadiusMeters: radius}, true
}

func zoneRow(zone geo.Zone) []string {
	return []string{
		zone.Name,
		strconv.FormatFloat(zone.Lat, 'f', -1, 64),
		strconv.FormatFloat(zone.Lon, 'f', -1, 64),
		strconv.FormatFloat(zone.RadiusMeters, 'f', -1, 64),
	}
}
