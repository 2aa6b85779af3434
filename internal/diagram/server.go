// Copyright (c) 2026 John Dewey

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:

// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER
// DEALINGS IN THE SOFTWARE.

// Package diagram serves pre-generated state diagram artifacts to the UI.
// The artifact directory holds one subdirectory per config type, each with
// diagram files and an optional metadata.json.
package diagram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"
	"github.com/spf13/afero"

	"github.com/retr0h/fsmd/internal/config"
)

const metadataFile = "metadata.json"

var contentTypes = map[string]string{
	".svg":  "image/svg+xml",
	".png":  "image/png",
	".json": "application/json",
	".mmd":  "text/plain; charset=utf-8",
	".dot":  "text/plain; charset=utf-8",
}

// Server owns the diagram HTTP endpoint.
type Server struct {
	Echo *echo.Echo

	logger    *slog.Logger
	appConfig config.Config
	appFs     afero.Fs
}

// New initialize a new Server and configure an Echo server.
func New(
	appConfig config.Config,
	logger *slog.Logger,
	appFs afero.Fs,
) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())

	s := &Server{
		Echo:      e,
		logger:    logger,
		appConfig: appConfig,
		appFs:     appFs,
	}

	e.GET("/api/diagrams/list", s.listDiagrams)
	e.GET("/api/diagram/:config_type/metadata", s.getMetadata)
	e.GET("/api/diagram/:config_type/:diagram_name", s.getDiagram)

	return s
}

// Start starts the Echo server with the configured port.
func (s *Server) Start() {
	go func() {
		s.logger.Info("starting diagram provider")
		listenAddr := fmt.Sprintf(":%d", s.appConfig.Diagrams.Port)
		if err := s.Echo.Start(listenAddr); err != nil && err != http.ErrServerClosed {
			s.logger.Error(
				"failed to start diagram provider",
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Stop gracefully shuts down the Echo server.
func (s *Server) Stop(
	ctx context.Context,
) {
	s.logger.Info("stopping diagram provider")

	if err := s.Echo.Shutdown(ctx); err != nil {
		s.logger.Error(
			"diagram provider shutdown failed",
			slog.String("error", err.Error()),
		)
	}
}

// listDiagrams enumerates every config type directory and its diagram
// files, metadata excluded.
func (s *Server) listDiagrams(c echo.Context) error {
	root := s.appConfig.Diagrams.Dir

	entries, err := afero.ReadDir(s.appFs, root)
	if err != nil {
		return echo.NewHTTPError(
			http.StatusInternalServerError,
			"diagram directory unavailable",
		)
	}

	out := make(map[string][]string)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		files, err := afero.ReadDir(s.appFs, filepath.Join(root, entry.Name()))
		if err != nil {
			continue
		}

		names := make([]string, 0, len(files))
		for _, f := range files {
			if f.IsDir() || f.Name() == metadataFile {
				continue
			}
			names = append(names, f.Name())
		}
		sort.Strings(names)
		out[entry.Name()] = names
	}

	return c.JSON(http.StatusOK, map[string]any{"diagrams": out})
}

func (s *Server) getDiagram(c echo.Context) error {
	configType := c.Param("config_type")
	diagramName := c.Param("diagram_name")

	path, err := s.artifactPath(configType, diagramName)
	if err != nil {
		return err
	}

	data, err := afero.ReadFile(s.appFs, path)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "diagram not found")
	}

	contentType, ok := contentTypes[strings.ToLower(filepath.Ext(diagramName))]
	if !ok {
		contentType = "application/octet-stream"
	}

	return c.Blob(http.StatusOK, contentType, data)
}

func (s *Server) getMetadata(c echo.Context) error {
	path, err := s.artifactPath(c.Param("config_type"), metadataFile)
	if err != nil {
		return err
	}

	data, err := afero.ReadFile(s.appFs, path)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "metadata not found")
	}

	return c.Blob(http.StatusOK, "application/json", data)
}

// artifactPath joins and confines the request to the artifact directory.
func (s *Server) artifactPath(configType, name string) (string, error) {
	if !safeSegment(configType) || !safeSegment(name) {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid path")
	}

	return filepath.Join(s.appConfig.Diagrams.Dir, configType, name), nil
}

// safeSegment rejects traversal attempts in a single path element.
func safeSegment(segment string) bool {
	return segment != "" &&
		segment != "." &&
		!strings.Contains(segment, "..") &&
		!strings.ContainsAny(segment, `/\`)
}
