// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package codec

import (
	"context"
	"fmt"

	"github.com/google/renameio/v2"
	xglog "github.com/psi-fda/scanmodel/internal/log"
)

// writeFile replaces path with data atomically: the document goes to a pending
// file that is fsynced and renamed over the target, so a failed save leaves the
// previous file untouched.
func writeFile(ctx context.Context, path string, data []byte) error {
	logger := xglog.FromContext(ctx)

	pendingFile, err := renameio.NewPendingFile(path,
		renameio.WithPermissions(0o644),
		renameio.WithExistingPermissions(),
	)
	if err != nil {
		return fmt.Errorf("create pending configuration file: %w", err)
	}
	defer func() {
		// No-op once CloseAtomicallyReplace succeeded.
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending configuration file")
		}
	}()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write configuration data: %w", err)
	}

	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace configuration file: %w", err)
	}
	logger.Debug().Str(xglog.FieldPath, path).Int(xglog.FieldBytes, len(data)).Msg("configuration file replaced")
	return nil
}
