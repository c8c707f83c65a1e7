package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"nwbconv/internal/electrode"
	"nwbconv/internal/ragged"
	"nwbconv/internal/units"
	"nwbconv/internal/waveform"
)

// Read loads an artifact written by Write.
func Read(ctx context.Context, path string) (_ *Artifact, err error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("artifact %s does not exist", path)
		}
		return nil, fmt.Errorf("stat artifact: %w", err)
	}
	db, err := openDB(path, true)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close artifact: %w", closeErr)
		}
	}()
	if err := checkSchema(ctx, db); err != nil {
		return nil, err
	}

	a := &Artifact{}
	readers := []struct {
		name string
		fn   func(context.Context, *sql.DB, *Artifact) error
	}{
		{"export_info", readInfo},
		{"electrode_groups", readGroups},
		{"electrodes", readElectrodes},
		{"units", readUnits},
		{"vectors", readVectors},
		{"timeseries", readTimeSeries},
	}
	for _, r := range readers {
		if err := r.fn(ctx, db, a); err != nil {
			return nil, fmt.Errorf("read %s: %w", r.name, err)
		}
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func readInfo(ctx context.Context, db *sql.DB, a *Artifact) error {
	rows, err := db.QueryContext(ctx, "SELECT key, value FROM export_info")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return err
		}
		switch key {
		case infoFormatVersion:
			a.Info.FormatVersion, err = strconv.Atoi(value)
		case infoSessionID:
			a.Info.SessionID, err = strconv.Atoi(value)
		case infoAnimal:
			a.Info.Animal = value
		case infoRunID:
			a.Info.RunID = value
		case infoCreatedAt:
			a.Info.CreatedAt, err = time.Parse(createdAtTimeFormat, value)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return rows.Err()
}

func readGroups(ctx context.Context, db *sql.DB, a *Artifact) error {
	rows, err := db.QueryContext(ctx, `SELECT name, probe_label, shank_index, description, manufacturer, reference
		FROM electrode_groups ORDER BY probe_label, shank_index`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var g electrode.ElectrodeGroup
		if err := rows.Scan(&g.Name, &g.ProbeLabel, &g.ShankIndex, &g.Description, &g.Manufacturer, &g.Reference); err != nil {
			return err
		}
		a.Groups = append(a.Groups, g)
	}
	return rows.Err()
}

func readElectrodes(ctx context.Context, db *sql.DB, a *Artifact) error {
	rows, err := db.QueryContext(ctx, `SELECT id, local_index, probe_label, group_name, x, y, z, location, imp
		FROM electrodes ORDER BY position`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			ch      electrode.ChannelRecord
			x, y, z sql.NullFloat64
			imp     sql.NullFloat64
		)
		if err := rows.Scan(&ch.ID, &ch.LocalIndex, &ch.ProbeLabel, &ch.Group, &x, &y, &z, &ch.Location, &imp); err != nil {
			return err
		}
		ch.X, ch.Y, ch.Z = orNaN(x), orNaN(y), orNaN(z)
		if imp.Valid {
			v := imp.Float64
			ch.Impedance = &v
		}
		a.Electrodes = append(a.Electrodes, ch)
	}
	return rows.Err()
}

func readUnits(ctx context.Context, db *sql.DB, a *Artifact) error {
	rows, err := db.QueryContext(ctx, `SELECT id, cluster_id, activity_type, peak_channel_index, peak_channel_id,
		rel_horizontal, rel_vertical, isi_violation, isolation_distance, location, probe_label, electrode_group
		FROM units ORDER BY position`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			u                  units.Record
			kind               string
			horiz, vert        sql.NullFloat64
			isi, isolationDist sql.NullFloat64
		)
		if err := rows.Scan(&u.ID, &u.ClusterID, &kind, &u.PeakChannelIndex, &u.PeakChannelID,
			&horiz, &vert, &isi, &isolationDist, &u.Location, &u.ProbeLabel, &u.ElectrodeGroup); err != nil {
			return err
		}
		u.ActivityType = units.ActivityType(kind)
		u.RelativeHorizontal, u.RelativeVertical = orNaN(horiz), orNaN(vert)
		u.ISIViolationRate, u.IsolationDistance = orNaN(isi), orNaN(isolationDist)
		a.Units = append(a.Units, u)
	}
	return rows.Err()
}

func readVectors(ctx context.Context, db *sql.DB, a *Artifact) error {
	data := map[string][]float64{}
	rows, err := db.QueryContext(ctx, "SELECT name, dtype, length, data FROM vector_data")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			name, dtype string
			length      int
			blob        []byte
		)
		if err := rows.Scan(&name, &dtype, &length, &blob); err != nil {
			return err
		}
		if dtype != dtypeFloat64 {
			return fmt.Errorf("vector %s: unsupported dtype %q", name, dtype)
		}
		values, err := decodeFloats(blob)
		if err != nil {
			return fmt.Errorf("vector %s: %w", name, err)
		}
		if len(values) != length {
			return fmt.Errorf("vector %s: %d values, declared %d", name, len(values), length)
		}
		data[name] = values
	}
	if err := rows.Err(); err != nil {
		return err
	}

	index := map[string][]int{}
	targets := map[string]string{}
	idxRows, err := db.QueryContext(ctx, "SELECT name, target, length, data FROM vector_index")
	if err != nil {
		return err
	}
	defer idxRows.Close()
	for idxRows.Next() {
		var (
			name, target string
			length       int
			blob         []byte
		)
		if err := idxRows.Scan(&name, &target, &length, &blob); err != nil {
			return err
		}
		offsets, err := decodeInts(blob)
		if err != nil {
			return fmt.Errorf("index %s: %w", name, err)
		}
		if len(offsets) != length {
			return fmt.Errorf("index %s: %d offsets, declared %d", name, len(offsets), length)
		}
		index[name] = offsets
		targets[name] = target
	}
	if err := idxRows.Err(); err != nil {
		return err
	}

	spikes, err := raggedColumn(SpikeTimes, data, index, targets)
	if err != nil {
		return err
	}
	a.SpikeTimes = spikes
	if _, ok := data[Waveforms]; !ok {
		return nil
	}
	mean, err := raggedColumn(WaveformMean, data, index, targets)
	if err != nil {
		return err
	}
	nested := ragged.Nested[float64]{Values: data[Waveforms]}
	for target := Waveforms; ; {
		name := target + indexSuffix
		level, ok := index[name]
		if !ok || targets[name] != target {
			break
		}
		nested.Levels = append(nested.Levels, level)
		target = name
	}
	a.Waveforms = waveform.Exported{Waveforms: nested, Mean: mean}
	return nil
}

func raggedColumn(name string, data map[string][]float64, index map[string][]int, targets map[string]string) (ragged.Array[float64], error) {
	values, ok := data[name]
	if !ok {
		return ragged.Array[float64]{}, fmt.Errorf("vector %s missing", name)
	}
	idxName := name + indexSuffix
	offsets, ok := index[idxName]
	if !ok || targets[idxName] != name {
		return ragged.Array[float64]{}, fmt.Errorf("index %s missing", idxName)
	}
	arr := ragged.Array[float64]{Data: values, Index: offsets}
	if err := arr.Validate(); err != nil {
		return ragged.Array[float64]{}, fmt.Errorf("%s: %w", name, err)
	}
	return arr, nil
}

func readTimeSeries(ctx context.Context, db *sql.DB, a *Artifact) error {
	rows, err := db.QueryContext(ctx, `SELECT name, description, unit, rows, columns, data, timestamps, quality
		FROM timeseries ORDER BY name`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			ts                 TimeSeries
			nRows, nCols       int
			data, stamps, mask []byte
		)
		if err := rows.Scan(&ts.Name, &ts.Description, &ts.Unit, &nRows, &nCols, &data, &stamps, &mask); err != nil {
			return err
		}
		flat, err := decodeFloats(data)
		if err != nil {
			return fmt.Errorf("timeseries %s: %w", ts.Name, err)
		}
		if ts.Values, err = splitRows(flat, nRows, nCols); err != nil {
			return fmt.Errorf("timeseries %s: %w", ts.Name, err)
		}
		if ts.Timestamps, err = decodeFloats(stamps); err != nil {
			return fmt.Errorf("timeseries %s: %w", ts.Name, err)
		}
		ts.Quality = decodeBools(mask)
		a.TimeSeries = append(a.TimeSeries, ts)
	}
	return rows.Err()
}

// TimeSeriesByName returns the named stream.
func (a *Artifact) TimeSeriesByName(name string) (TimeSeries, bool) {
	for _, ts := range a.TimeSeries {
		if ts.Name == name {
			return ts, true
		}
	}
	return TimeSeries{}, false
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return nan
	}
	return v.Float64
}
