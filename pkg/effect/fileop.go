package effect

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"effectkit/pkg/effecterrors"
	"effectkit/pkg/logx"
	"effectkit/pkg/txn"
)

// FileHandler executes FILE_OPERATION effects: read, write (optionally
// atomic), and delete. Write and delete register compensating rollback
// actions when a transaction is active.
type FileHandler struct {
	logger *logx.Logger
}

// NewFileHandler creates the built-in file-operation handler.
func NewFileHandler() *FileHandler {
	return &FileHandler{
		logger: logx.NewLogger("fileop"),
	}
}

// Handle dispatches on operation_type in the payload.
func (h *FileHandler) Handle(ctx context.Context, data map[string]any, tx *txn.Transaction) (any, error) {
	op, _ := data["operation_type"].(string)
	path, _ := data["file_path"].(string)
	if path == "" {
		return nil, effecterrors.New(effecterrors.KindValidation, "file_path is required")
	}

	switch op {
	case "read":
		return h.read(path)
	case "write":
		return h.write(data, path, tx)
	case "delete":
		return h.delete(path, tx)
	default:
		return nil, effecterrors.Newf(effecterrors.KindValidation,
			"unknown file operation type %q", op)
	}
}

func (h *FileHandler) read(path string) (any, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, effecterrors.Newf(effecterrors.KindResourceUnavailable,
				"file %s does not exist", path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(content), nil
}

// write stores the payload's data at file_path. With atomic=true the content
// goes to a temporary sibling first and is renamed over the destination, so
// readers never observe a partial file. The rollback action deletes the
// just-written file.
func (h *FileHandler) write(data map[string]any, path string, tx *txn.Transaction) (any, error) {
	content, _ := data["data"].(string)
	atomic, _ := data["atomic"].(bool)

	if atomic {
		tmp := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.New().String()[:8]))
		if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
			return nil, fmt.Errorf("failed to write temp file for %s: %w", path, err)
		}
		if err := os.Rename(tmp, path); err != nil {
			_ = os.Remove(tmp)
			return nil, fmt.Errorf("failed to rename temp file over %s: %w", path, err)
		}
	} else {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	if tx != nil {
		target := path
		if err := tx.AddOperation(fmt.Sprintf("write %s (%d bytes, atomic=%t)", path, len(content), atomic), func() error {
			return os.Remove(target)
		}); err != nil {
			return nil, err
		}
	}

	h.logger.Debug("Wrote %d bytes to %s (atomic=%t)", len(content), path, atomic)
	return map[string]any{
		"file_path":     path,
		"bytes_written": len(content),
		"atomic":        atomic,
	}, nil
}

// delete removes file_path. When a transaction is active the prior content
// is captured first and the rollback action rewrites it; if the prior
// content cannot be captured the delete proceeds without a compensator and
// the operation is still listed in the transaction's log.
func (h *FileHandler) delete(path string, tx *txn.Transaction) (any, error) {
	var prior []byte
	var captured bool
	if tx != nil {
		if content, err := os.ReadFile(path); err == nil {
			prior = content
			captured = true
		} else {
			h.logger.Warn("Could not capture prior content of %s before delete: %v", path, err)
		}
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil, effecterrors.Newf(effecterrors.KindResourceUnavailable,
				"file %s does not exist", path)
		}
		return nil, fmt.Errorf("failed to delete %s: %w", path, err)
	}

	if tx != nil {
		var rollback txn.RollbackAction
		if captured {
			target := path
			restored := prior
			rollback = func() error {
				return os.WriteFile(target, restored, 0644)
			}
		}
		if err := tx.AddOperation(fmt.Sprintf("delete %s (restorable=%t)", path, captured), rollback); err != nil {
			return nil, err
		}
	}

	h.logger.Debug("Deleted %s (restorable=%t)", path, captured)
	return map[string]any{
		"file_path": path,
		"deleted":   true,
	}, nil
}
