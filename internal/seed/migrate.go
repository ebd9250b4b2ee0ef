package seed

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/citc/clubhub/internal/domain/entities"
	"github.com/citc/clubhub/internal/infrastructure/database"
	"github.com/citc/clubhub/internal/infrastructure/logger"
)

// MigrationResult reports what MigrateLegacyEvents did.
type MigrationResult struct {
	Found    int
	Migrated int
	Skipped  int
	Years    []int
}

// MigrateLegacyEvents copies the events of the legacy <data_dir>/events.json
// into their year partitions. Events whose id is already stored in any
// partition are skipped, so running it twice is harmless. The legacy file is
// left in place.
func MigrateLegacyEvents(ctx context.Context, db *database.DB, log *logger.Logger) (MigrationResult, error) {
	if log == nil {
		log = logger.NewNop()
	}
	log = log.WithComponent("migrate")

	var res MigrationResult

	legacyPath := filepath.Join(db.DataDir(), database.LegacyEventsFile)
	if _, err := os.Stat(legacyPath); errors.Is(err, fs.ErrNotExist) {
		log.Infow("No legacy events file, nothing to migrate", "path", legacyPath)
		return res, nil
	} else if err != nil {
		return res, fmt.Errorf("stat %s: %w", legacyPath, err)
	}

	legacy, err := database.Open(ctx, legacyPath, database.EventsDoc{}, nil)
	if err != nil {
		return res, err
	}
	res.Found = len(legacy.Data.Events)

	stored, err := db.AllEvents(ctx)
	if err != nil {
		return res, err
	}
	known := make(map[string]bool, len(stored))
	for _, e := range stored {
		known[e.ID] = true
	}

	byYear := make(map[int][]entities.Event)
	for _, e := range legacy.Data.Events {
		if e.ID == "" || known[e.ID] {
			res.Skipped++
			continue
		}
		known[e.ID] = true
		e.Normalize()
		byYear[e.Year()] = append(byYear[e.Year()], e)
	}

	for year := range byYear {
		res.Years = append(res.Years, year)
	}
	sort.Ints(res.Years)

	for _, year := range res.Years {
		events := byYear[year]
		err := db.UpdateEventsForYear(ctx, year, func(doc *database.EventsDoc) error {
			present := make(map[string]bool, len(doc.Events))
			for _, e := range doc.Events {
				present[e.ID] = true
			}
			for _, e := range events {
				if present[e.ID] {
					res.Skipped++
					continue
				}
				doc.Events = append(doc.Events, e)
				res.Migrated++
			}
			return nil
		})
		if err != nil {
			return res, fmt.Errorf("migrate events for %d: %w", year, err)
		}
		log.Infow("Migrated partition", "year", year, "events", len(events))
	}

	return res, nil
}
