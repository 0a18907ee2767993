// Package importer loads a gravity.yaml document into a gravity database.
package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"gravityyaml/pkg/gravityfile"
	"gravityyaml/pkg/store"
)

const (
	// DefaultGroupName is the implicit group every adlist belongs to.
	DefaultGroupName = gravityfile.DefaultGroupName
	// DefaultGroupID is the well-known id of the Default group. It is never
	// written to the group or adlist_by_group tables.
	DefaultGroupID int64 = 0
)

// TxBeginner starts database transactions. *store.Store and *sql.DB satisfy it.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// GroupIndex maps group names to their generated ids.
type GroupIndex map[string]int64

// NewGroupIndex returns an index holding only the Default group.
func NewGroupIndex() GroupIndex {
	return GroupIndex{DefaultGroupName: DefaultGroupID}
}

// UnresolvedGroupReference records an adlist naming a group that does not exist.
type UnresolvedGroupReference struct {
	Adlist string
	Group  string
}

func (u UnresolvedGroupReference) String() string {
	return fmt.Sprintf("group %s referenced by adlist %s does not exist", u.Group, u.Adlist)
}

// Report summarises a completed import.
type Report struct {
	Groups      int
	Adlists     int
	Memberships int
	Warnings    []UnresolvedGroupReference
}

// Importer writes documents into a gravity database.
type Importer struct {
	log *slog.Logger
}

// New creates an Importer logging through log.
func New(log *slog.Logger) *Importer {
	if log == nil {
		log = slog.Default()
	}
	return &Importer{log: log}
}

// Import inserts all groups, adlists and group assignments of doc in a single
// transaction. Unknown group references are reported and skipped; any other
// failure rolls the transaction back and is wrapped in store.ErrWrite.
// A document declaring its own Default group is rejected with
// gravityfile.ErrValidation before the database is touched.
func (im *Importer) Import(ctx context.Context, doc *gravityfile.Document, db TxBeginner) (report *Report, err error) {
	for i, group := range doc.Groups {
		if group.Name == DefaultGroupName {
			return nil, fmt.Errorf("%w: groups[%d] uses the reserved name %s", gravityfile.ErrValidation, i, DefaultGroupName)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin transaction: %w", store.ErrWrite, err)
	}
	defer func() {
		if err != nil {
			im.rollback(tx)
		}
	}()

	report = &Report{}
	index := NewGroupIndex()

	for _, group := range doc.Groups {
		id, err := insertGroup(ctx, tx, group)
		if err != nil {
			return nil, fmt.Errorf("%w: insert group %s: %w", store.ErrWrite, group.Name, err)
		}
		if _, exists := index[group.Name]; exists {
			im.log.Warn("group name declared again, later declaration wins", "group", group.Name, "id", id)
		}
		index[group.Name] = id
		report.Groups++
		im.log.Debug("added group", "group", group.Name, "id", id)
	}

	for _, adlist := range doc.Adlists {
		listID, err := insertAdlist(ctx, tx, adlist)
		if err != nil {
			return nil, fmt.Errorf("%w: insert adlist %s: %w", store.ErrWrite, adlist.URL, err)
		}
		report.Adlists++
		im.log.Debug("added adlist", "adlist", adlist.URL, "id", listID)

		assigned := make(map[int64]bool, len(adlist.Groups))
		for _, name := range adlist.Groups {
			groupID, ok := index[name]
			if !ok {
				warning := UnresolvedGroupReference{Adlist: adlist.URL, Group: name}
				report.Warnings = append(report.Warnings, warning)
				im.log.Warn("group referenced by adlist does not exist", "group", name, "adlist", adlist.URL)
				continue
			}
			if groupID == DefaultGroupID {
				continue
			}
			if assigned[groupID] {
				im.log.Warn("adlist references group more than once", "group", name, "adlist", adlist.URL)
				continue
			}
			assigned[groupID] = true
			if err := insertMembership(ctx, tx, listID, groupID); err != nil {
				return nil, fmt.Errorf("%w: assign adlist %s to group %s: %w", store.ErrWrite, adlist.URL, name, err)
			}
			report.Memberships++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %w", store.ErrWrite, err)
	}
	return report, nil
}

// rollback aborts tx. A transaction already finished by a failed commit is not reported.
func (im *Importer) rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		im.log.Error("failed to roll back import", "error", err)
	}
}

func insertGroup(ctx context.Context, tx *sql.Tx, group gravityfile.GroupSpec) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO "group" (enabled, name, description) VALUES (?, ?, ?)`,
		group.IsEnabled(), group.Name, group.Description,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertAdlist(ctx context.Context, tx *sql.Tx, adlist gravityfile.AdlistSpec) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO adlist (address, enabled, comment) VALUES (?, ?, ?)`,
		adlist.URL, adlist.IsEnabled(), adlist.Description,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertMembership(ctx context.Context, tx *sql.Tx, adlistID, groupID int64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO adlist_by_group (adlist_id, group_id) VALUES (?, ?)`,
		adlistID, groupID,
	)
	return err
}
