package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dukex/conduit/pkg/models"
	"github.com/dukex/conduit/pkg/persistence"
	"github.com/klauspost/compress/zip"
)

// ModelFileName is the archive entry holding the exported integrations.
const ModelFileName = "model.json"

// maxArchiveSize bounds the size of an uncompressed model entry.
const maxArchiveSize = 32 << 20

// Archive is the content of model.json.
type Archive struct {
	Integrations []*models.Integration `json:"integrations"`
}

// Support imports and exports integration archives.
type Support struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

func NewSupport(persistence persistence.Persistence, logger *slog.Logger) *Support {
	return &Support{
		persistence: persistence,
		logger:      logger,
	}
}

// Export writes a zip archive holding the given integrations to w.
func (s *Support) Export(ctx context.Context, w io.Writer, ids ...string) error {
	archive := Archive{Integrations: make([]*models.Integration, 0, len(ids))}

	for _, id := range ids {
		integration, err := s.persistence.IntegrationByID(ctx, id)
		if err != nil {
			return err
		}

		if integration == nil {
			return persistence.NewIntegrationError("Export", id, ErrIntegrationNotFound)
		}

		archive.Integrations = append(archive.Integrations, integration)
	}

	zw := zip.NewWriter(w)

	entry, err := zw.CreateHeader(&zip.FileHeader{
		Name:     ModelFileName,
		Method:   zip.Deflate,
		Modified: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to create archive entry: %w", err)
	}

	encoder := json.NewEncoder(entry)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(archive); err != nil {
		return fmt.Errorf("failed to encode archive: %w", err)
	}

	return zw.Close()
}

// Import stores every integration of the archive, keeping their ids.
// Integrations without an id are rejected.
func (s *Support) Import(ctx context.Context, data []byte) ([]*models.Integration, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, NewValidationError("Import", "INVALID_ARCHIVE", err.Error(), ErrInvalidArchive)
	}

	var model *zip.File

	for _, f := range zr.File {
		if f.Name == ModelFileName {
			model = f

			break
		}
	}

	if model == nil {
		return nil, NewValidationError("Import", "INVALID_ARCHIVE", ModelFileName+" is missing", ErrInvalidArchive)
	}

	entry, err := model.Open()
	if err != nil {
		return nil, NewValidationError("Import", "INVALID_ARCHIVE", err.Error(), ErrInvalidArchive)
	}
	defer entry.Close()

	var archive Archive
	if err := json.NewDecoder(io.LimitReader(entry, maxArchiveSize)).Decode(&archive); err != nil {
		return nil, NewValidationError("Import", "INVALID_ARCHIVE", err.Error(), ErrInvalidArchive)
	}

	now := time.Now().UTC()
	imported := make([]*models.Integration, 0, len(archive.Integrations))

	// every entry is checked before the first write so a rejected archive
	// leaves the store untouched
	for _, integration := range archive.Integrations {
		if integration == nil {
			continue
		}

		if err := persistence.ValidateID(integration.ID); err != nil {
			return nil, NewValidationError("Import", "INVALID_ARCHIVE", "integration without a valid id", ErrInvalidArchive)
		}

		if err := integration.Validate(); err != nil {
			return nil, NewValidationError("Import", "INVALID_INTEGRATION", err.Error(), ErrInvalidArchive)
		}

		existing, err := s.persistence.IntegrationByID(ctx, integration.ID)
		if err != nil {
			return nil, err
		}

		if existing != nil {
			integration.Version = existing.Version + 1
			integration.CreatedAt = existing.CreatedAt
		}

		if integration.Version == 0 {
			integration.Version = 1
		}

		if integration.CreatedAt.IsZero() {
			integration.CreatedAt = now
		}

		if integration.Tags == nil {
			integration.Tags = []string{}
		}

		integration.UpdatedAt = now
		imported = append(imported, integration)
	}

	for _, integration := range imported {
		if err := s.persistence.SaveIntegration(ctx, integration); err != nil {
			return nil, fmt.Errorf("failed to import integration %s: %w", integration.ID, err)
		}

		s.logger.InfoContext(ctx, "integration imported", "integration_id", integration.ID, "version", integration.Version)
	}

	return imported, nil
}
