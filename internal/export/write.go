package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"nwbconv/internal/fileutil"
	"nwbconv/internal/ragged"
)

// Options control Write.
type Options struct {
	// Overwrite replaces an existing artifact.
	Overwrite bool
}

// Write persists a to path. The artifact is built in a temporary file in the
// destination directory and renamed into place only after the transaction
// commits; on any failure the temporary file is removed.
func Write(ctx context.Context, path string, a *Artifact, opts Options) (err error) {
	if a == nil {
		return errors.New("export: nil artifact")
	}
	if err := a.Validate(); err != nil {
		return err
	}
	if !opts.Overwrite {
		if _, statErr := os.Stat(path); statErr == nil {
			return fmt.Errorf("%w: %s", fileutil.ErrExists, path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	tmp := fileutil.TempPath(path)
	defer func() {
		if err != nil {
			for _, p := range []string{tmp, tmp + "-journal", tmp + "-wal", tmp + "-shm"} {
				_ = os.Remove(p)
			}
		}
	}()

	if err := writeDB(ctx, tmp, a); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fileutil.Publish(tmp, path, opts.Overwrite); err != nil {
		return fmt.Errorf("publish artifact: %w", err)
	}
	return nil
}

func writeDB(ctx context.Context, path string, a *Artifact) (err error) {
	db, err := openDB(path, false)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close artifact: %w", closeErr)
		}
	}()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin export tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	steps := []struct {
		name string
		fn   func(context.Context, *sql.Tx, *Artifact) error
	}{
		{"schema", func(ctx context.Context, tx *sql.Tx, _ *Artifact) error { return createSchema(ctx, tx) }},
		{"export_info", insertInfo},
		{"electrode_groups", insertGroups},
		{"electrodes", insertElectrodes},
		{"units", insertUnits},
		{"vectors", insertVectors},
		{"timeseries", insertTimeSeries},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step.fn(ctx, tx, a); err != nil {
			return fmt.Errorf("write %s: %w", step.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit export tx: %w", err)
	}
	return nil
}

func insertInfo(ctx context.Context, tx *sql.Tx, a *Artifact) error {
	version := a.Info.FormatVersion
	if version == 0 {
		version = FormatVersion
	}
	rows := [][2]string{
		{infoFormatVersion, strconv.Itoa(version)},
		{infoSessionID, strconv.Itoa(a.Info.SessionID)},
		{infoAnimal, a.Info.Animal},
		{infoRunID, a.Info.RunID},
		{infoCreatedAt, a.Info.CreatedAt.UTC().Format(createdAtTimeFormat)},
	}
	for _, r := range rows {
		if _, err := tx.ExecContext(ctx, "INSERT INTO export_info (key, value) VALUES (?, ?)", r[0], r[1]); err != nil {
			return err
		}
	}
	return nil
}

func insertGroups(ctx context.Context, tx *sql.Tx, a *Artifact) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO electrode_groups
		(name, probe_label, shank_index, description, manufacturer, reference)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, g := range a.Groups {
		if _, err := stmt.ExecContext(ctx, g.Name, g.ProbeLabel, g.ShankIndex, g.Description, g.Manufacturer, g.Reference); err != nil {
			return fmt.Errorf("group %s: %w", g.Name, err)
		}
	}
	return nil
}

func insertElectrodes(ctx context.Context, tx *sql.Tx, a *Artifact) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO electrodes
		(id, position, local_index, probe_label, group_name, x, y, z, location, imp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, ch := range a.Electrodes {
		var imp any
		if ch.Impedance != nil {
			imp = nullable(*ch.Impedance)
		}
		if _, err := stmt.ExecContext(ctx, ch.ID, i, ch.LocalIndex, ch.ProbeLabel, ch.Group,
			nullable(ch.X), nullable(ch.Y), nullable(ch.Z), ch.Location, imp); err != nil {
			return fmt.Errorf("electrode %d: %w", ch.ID, err)
		}
	}
	return nil
}

func insertUnits(ctx context.Context, tx *sql.Tx, a *Artifact) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO units
		(id, position, cluster_id, activity_type, peak_channel_index, peak_channel_id,
		 rel_horizontal, rel_vertical, isi_violation, isolation_distance,
		 location, probe_label, electrode_group)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, u := range a.Units {
		if _, err := stmt.ExecContext(ctx, u.ID, i, u.ClusterID, string(u.ActivityType),
			u.PeakChannelIndex, u.PeakChannelID,
			nullable(u.RelativeHorizontal), nullable(u.RelativeVertical),
			nullable(u.ISIViolationRate), nullable(u.IsolationDistance),
			u.Location, u.ProbeLabel, u.ElectrodeGroup); err != nil {
			return fmt.Errorf("unit %d: %w", u.ID, err)
		}
	}
	return nil
}

func insertVectors(ctx context.Context, tx *sql.Tx, a *Artifact) error {
	if err := insertRaggedFloats(ctx, tx, SpikeTimes, a.SpikeTimes); err != nil {
		return err
	}
	if !a.HasWaveforms() {
		return nil
	}
	if err := insertRaggedFloats(ctx, tx, WaveformMean, a.Waveforms.Mean); err != nil {
		return err
	}
	nested := a.Waveforms.Waveforms
	if err := insertData(ctx, tx, Waveforms, dtypeFloat64, len(nested.Values), encodeFloats(nested.Values)); err != nil {
		return err
	}
	target := Waveforms
	for _, level := range nested.Levels {
		name := target + indexSuffix
		if err := insertIndex(ctx, tx, name, target, level); err != nil {
			return err
		}
		target = name
	}
	return nil
}

func insertRaggedFloats(ctx context.Context, tx *sql.Tx, name string, arr ragged.Array[float64]) error {
	if err := insertData(ctx, tx, name, dtypeFloat64, len(arr.Data), encodeFloats(arr.Data)); err != nil {
		return err
	}
	return insertIndex(ctx, tx, name+indexSuffix, name, arr.Index)
}

func insertData(ctx context.Context, tx *sql.Tx, name, dtype string, length int, blob []byte) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO vector_data (name, table_name, dtype, length, data) VALUES (?, ?, ?, ?, ?)",
		name, unitsTable, dtype, length, blob)
	if err != nil {
		return fmt.Errorf("vector %s: %w", name, err)
	}
	return nil
}

func insertIndex(ctx context.Context, tx *sql.Tx, name, target string, index []int) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO vector_index (name, table_name, target, length, data) VALUES (?, ?, ?, ?, ?)",
		name, unitsTable, target, len(index), encodeInts(index))
	if err != nil {
		return fmt.Errorf("index %s: %w", name, err)
	}
	return nil
}

func insertTimeSeries(ctx context.Context, tx *sql.Tx, a *Artifact) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO timeseries
		(name, description, unit, rows, columns, data, timestamps, quality)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, ts := range a.TimeSeries {
		if _, err := stmt.ExecContext(ctx, ts.Name, ts.Description, ts.Unit,
			len(ts.Values), ts.Columns(),
			encodeFloats(flattenRows(ts.Values)), encodeFloats(ts.Timestamps), encodeBools(ts.Quality)); err != nil {
			return fmt.Errorf("timeseries %s: %w", ts.Name, err)
		}
	}
	return nil
}
