// Package mcp exposes the matching core as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/trialiq-server/internal/domain"
	"github.com/trialiq-server/internal/service"
)

const (
	serverName    = "trialiq-mcp-server"
	serverVersion = "v1.0.0"
)

// Dependencies are the services the tools delegate to.
type Dependencies struct {
	Logger     *logrus.Logger
	Intake     *service.IntakeService
	Dashboard  *service.DashboardService
	Translator domain.Translator
	ExportDir  string
}

// Server represents the TrialIQ MCP server
type Server struct {
	deps      Dependencies
	mcpServer *mcp.Server
	logger    *logrus.Logger
	now       func() time.Time
}

// NewServer creates the MCP server and registers its tools.
func NewServer(deps Dependencies) (*Server, error) {
	if deps.Intake == nil {
		return nil, errors.New("intake service is required")
	}
	if deps.Translator == nil {
		return nil, errors.New("translator is required")
	}
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}

	s := &Server{
		deps:      deps,
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil),
		logger:    deps.Logger,
		now:       time.Now,
	}
	s.registerTools()
	return s, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, listTrialsTool(), s.handleListTrials)
	mcp.AddTool(s.mcpServer, listQuestionsTool(), s.handleListQuestions)
	mcp.AddTool(s.mcpServer, matchTrialsTool(), s.handleMatchTrials)

	registered := 3
	if s.deps.Dashboard != nil {
		mcp.AddTool(s.mcpServer, submissionSummaryTool(), s.handleSubmissionSummary)
		registered++
		if s.deps.ExportDir != "" {
			mcp.AddTool(s.mcpServer, exportSubmissionsTool(), s.handleExportSubmissions)
			registered++
		}
	}
	s.logger.WithField("tool_count", registered).Info("Registered MCP tools")
}

// Start serves the tools over stdio until ctx is cancelled or the client
// disconnects.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting TrialIQ MCP server on stdio")
	return s.serve(ctx, &mcp.StdioTransport{})
}

func (s *Server) serve(ctx context.Context, transport mcp.Transport) error {
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
