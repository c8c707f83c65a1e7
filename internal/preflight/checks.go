package preflight

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
	_ "modernc.org/sqlite"

	"nwbconv/internal/config"
	"nwbconv/internal/identifier"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDirectoryReadable verifies that the directory exists and can be
// listed. With optional set, a missing directory passes as an optional
// result.
func CheckDirectoryReadable(name, path string, optional bool) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if optional {
				return Result{Name: name, Passed: true, Optional: true, Detail: fmt.Sprintf("%s (not present)", path)}
			}
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Optional: optional, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Optional: optional, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Optional: optional, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Optional: optional, Detail: fmt.Sprintf("%s (read ok)", path)}
}

// CheckIdentifierCapacity verifies that every probe's channels fit the
// configured channel id width.
func CheckIdentifierCapacity(cfg *config.Config) Result {
	const name = "Identifier widths"

	channelCap := identifier.Capacity(cfg.Identifiers.ChannelWidth)
	for _, p := range cfg.Probes {
		if p.Channels() > channelCap {
			return Result{Name: name, Detail: fmt.Sprintf(
				"%s has %d channels but identifiers.channel_width %d holds at most %d",
				p.Label, p.Channels(), cfg.Identifiers.ChannelWidth, channelCap)}
		}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf(
		"channels up to %d, clusters up to %d per probe",
		channelCap, identifier.Capacity(cfg.Identifiers.UnitWidth))}
}

// CheckExportDriver verifies the embedded SQLite driver can open a database.
func CheckExportDriver(ctx context.Context) Result {
	const name = "SQLite driver"

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("open failed (%v)", err)}
	}
	defer db.Close()

	var version string
	if err := db.QueryRowContext(checkCtx, "SELECT sqlite_version()").Scan(&version); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("query failed (%v)", err)}
	}
	return Result{Name: name, Passed: true, Detail: "SQLite " + version}
}
