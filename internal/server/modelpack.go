package server

import (
	"archive/zip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/agrisense/farm-recommender/internal/artifacts"
	"github.com/agrisense/farm-recommender/internal/config"
	"github.com/agrisense/farm-recommender/internal/dataset"
	"github.com/agrisense/farm-recommender/internal/engine"
	"github.com/agrisense/farm-recommender/internal/history"
	"github.com/agrisense/farm-recommender/internal/httputil"
	"github.com/agrisense/farm-recommender/internal/logging"
)

// modelpackManifest describes the contents of a model pack zip
type modelpackManifest struct {
	Format      string `json:"format"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Created     string `json:"created"`
}

// ModelsSubdir and DataSubdir are the expected directories inside an
// extracted model pack.
const (
	ModelsSubdir = "models"
	DataSubdir   = "data"
)

// handleModelpackStatus returns the current model pack status
func (s *Server) handleModelpackStatus(w http.ResponseWriter, r *http.Request) {
	settings, err := config.LoadSettings()
	if err != nil {
		httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"installed": false,
			"error":     err.Error(),
		})
		return
	}

	if settings.ModelPackPath == "" {
		httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"installed": false,
		})
		return
	}

	// Check if path still exists
	if _, err := os.Stat(settings.ModelPackPath); err != nil {
		httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"installed": false,
			"error":     "model pack path no longer exists",
		})
		return
	}

	// Try to read manifest
	var manifest modelpackManifest
	manifestPath := filepath.Join(settings.ModelPackPath, "manifest.json")
	if data, err := os.ReadFile(manifestPath); err == nil {
		json.Unmarshal(data, &manifest)
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"installed":   true,
		"path":        settings.ModelPackPath,
		"version":     manifest.Version,
		"description": manifest.Description,
	})
}

// handleModelpackInstall extracts a model pack zip, loads its artifacts, and
// swaps them in without a restart.
func (s *Server) handleModelpackInstall(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Path == "" {
		httputil.RespondError(w, http.StatusBadRequest, "path is required")
		return
	}

	// Validate file exists and is a zip
	if _, err := os.Stat(req.Path); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, fmt.Sprintf("file not found: %s", req.Path))
		return
	}
	if !strings.HasSuffix(strings.ToLower(req.Path), ".zip") {
		httputil.RespondError(w, http.StatusBadRequest, "file must be a .zip archive")
		return
	}

	// Determine extraction target
	storeDir, err := config.DataStoreDir()
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("could not determine data directory: %v", err))
		return
	}
	extractDir := filepath.Join(storeDir, "modelpacks")
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("could not create directory: %v", err))
		return
	}

	// Extract zip
	packDir, err := extractModelpack(req.Path, extractDir)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("extraction failed: %v", err))
		return
	}

	// Validate extracted contents and load the new artifacts before anything
	// is swapped; a bad pack must not take down the running models.
	modelsDir := filepath.Join(packDir, ModelsSubdir)
	if _, err := os.Stat(modelsDir); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid model pack: missing models/ directory")
		return
	}
	bundle, err := artifacts.Load(modelsDir)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, fmt.Sprintf("invalid model pack: %v", err))
		return
	}

	// Save settings
	settings, _ := config.LoadSettings()
	settings.ModelPackPath = packDir
	if err := config.SaveSettings(settings); err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("could not save settings: %v", err))
		return
	}

	s.swapStores(bundle, packDir)

	logging.Info().Str("path", packDir).Msg("model pack installed")
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"installed": true,
		"path":      packDir,
		"message":   "Model pack installed successfully.",
	})
}

// swapStores replaces the engine and data stores with ones built from a new
// model pack. The history store keeps its directory; past consultations
// remain valid.
func (s *Server) swapStores(bundle *artifacts.Bundle, packDir string) {
	dataDir := filepath.Join(packDir, DataSubdir)

	newEngine := engine.FromBundle(bundle)

	var newDataset *dataset.Store
	datasetStore, err := dataset.NewStore(dataDir)
	if err != nil {
		logging.Warn().Err(err).Msg("training dataset not available after install")
	} else {
		newDataset = datasetStore
	}

	// Every store must track the installed pack; a failed open degrades to
	// nil, never to the previous pack's store.
	newHistory, err := history.NewStore(dataDir)
	if err != nil {
		logging.Warn().Err(err).Msg("history store not available after install")
		newHistory = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.datasetStore != nil {
		s.datasetStore.Close()
	}

	s.eng = newEngine
	s.datasetStore = newDataset
	s.historyStore = newHistory
	s.cfg.ModelsDir = filepath.Join(packDir, ModelsSubdir)
	s.cfg.DataDir = dataDir
}

// extractModelpack unzips a model pack archive into the target directory.
// Returns the path to the extracted pack root directory.
func extractModelpack(zipPath, targetDir string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", fmt.Errorf("could not open zip: %w", err)
	}
	defer r.Close()

	// Find the common root directory name from the zip
	var rootDir string
	for _, f := range r.File {
		parts := strings.SplitN(f.Name, "/", 2)
		if len(parts) > 0 {
			rootDir = parts[0]
			break
		}
	}
	if rootDir == "" {
		return "", fmt.Errorf("empty zip archive")
	}

	packDir := filepath.Join(targetDir, rootDir)

	// Remove existing extraction if present
	os.RemoveAll(packDir)

	for _, f := range r.File {
		// Sanitize path to prevent zip slip
		destPath := filepath.Join(targetDir, f.Name)
		if !strings.HasPrefix(destPath, filepath.Clean(targetDir)+string(os.PathSeparator)) {
			return "", fmt.Errorf("illegal file path in zip: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			os.MkdirAll(destPath, 0o755)
			continue
		}

		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return "", fmt.Errorf("could not create directory: %w", err)
		}

		outFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
		if err != nil {
			return "", fmt.Errorf("could not create file: %w", err)
		}

		rc, err := f.Open()
		if err != nil {
			outFile.Close()
			return "", fmt.Errorf("could not open zip entry: %w", err)
		}

		_, err = io.Copy(outFile, rc)
		rc.Close()
		outFile.Close()
		if err != nil {
			return "", fmt.Errorf("could not extract file: %w", err)
		}
	}

	return packDir, nil
}
