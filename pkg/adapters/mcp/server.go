// Package mcp exposes the casting engine as a Model Context Protocol server.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/hexcast/internal/logging"
	"github.com/aretw0/hexcast/pkg/content"
	"github.com/aretw0/hexcast/pkg/domain"
	"github.com/aretw0/hexcast/pkg/iching"
	"github.com/aretw0/hexcast/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"
)

// HexagramsURI is the resource listing every hexagram.
const HexagramsURI = "hexcast://hexagrams"

// CastResult is the structured output of cast_hexagram.
type CastResult struct {
	Tosses         []string                      `json:"tosses" jsonschema_description:"The six tosses, bottom line first (H = heads, T = tails)"`
	Reading        domain.Reading                `json:"reading" jsonschema_description:"Pattern, changing lines, primary and resulting hexagram"`
	Text           *domain.LocalizedHexagramText `json:"text,omitempty" jsonschema_description:"Reference text of the primary hexagram"`
	Interpretation string                        `json:"interpretation,omitempty" jsonschema_description:"Interpretation for the intention, when requested"`
}

// HexagramResult is the structured output of get_hexagram.
type HexagramResult struct {
	Hexagram domain.Hexagram               `json:"hexagram"`
	Text     *domain.LocalizedHexagramText `json:"text,omitempty"`
	Line     *domain.LineText              `json:"line,omitempty"`
}

type castArgs struct {
	Tosses    string  `mapstructure:"tosses"`
	Seed      *uint64 `mapstructure:"seed"`
	Lang      string  `mapstructure:"lang"`
	Intention string  `mapstructure:"intention"`
}

type hexagramArgs struct {
	Number int    `mapstructure:"number"`
	Line   int    `mapstructure:"line"`
	Lang   string `mapstructure:"lang"`
}

// Server wraps the casting engine and exposes it as an MCP Server.
type Server struct {
	content     *content.Store
	interpreter ports.Interpreter
	logger      *slog.Logger
	mcpServer   *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithInterpreter lets cast_hexagram answer an intention.
func WithInterpreter(i ports.Interpreter) Option {
	return func(s *Server) {
		s.interpreter = i
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(store *content.Store, version string, opts ...Option) *Server {
	s := &Server{
		content:   store,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("hexcast-mcp", strings.TrimSpace(version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	castTool := mcp.NewTool("cast_hexagram",
		mcp.WithDescription("Cast an I Ching hexagram with three coins per line. Omit tosses for a random cast."),
		mcp.WithString("tosses", mcp.Description(`Six manual tosses bottom first, e.g. "TTH THH HTT HHH THT HHT" or "2,2,3 2,3,3 ..."`)),
		mcp.WithNumber("seed", mcp.Description("Seed for a reproducible random cast (optional)")),
		mcp.WithString("lang", mcp.Description("Locale of the returned text, e.g. en or pt-BR")),
		mcp.WithString("intention", mcp.Description("The question asked; enables the interpretation when available")),
		mcp.WithOutputSchema[CastResult](),
	)
	s.mcpServer.AddTool(castTool, mcp.NewStructuredToolHandler(s.handleCast))

	hexTool := mcp.NewTool("get_hexagram",
		mcp.WithDescription("Look up a hexagram by King Wen number with its reference text."),
		mcp.WithNumber("number", mcp.Required(), mcp.Description("King Wen number, 1 to 64")),
		mcp.WithNumber("line", mcp.Description("Line 1 to 6 (bottom to top) to include (optional)")),
		mcp.WithString("lang", mcp.Description("Locale of the returned text")),
		mcp.WithOutputSchema[HexagramResult](),
	)
	s.mcpServer.AddTool(hexTool, mcp.NewStructuredToolHandler(s.handleGetHexagram))
}

// decodeArgs maps loosely typed tool arguments onto a struct.
func decodeArgs(args map[string]interface{}, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return domain.NewInvalidInput("arguments", nil, err.Error())
	}
	return nil
}

// parseTosses splits manual entry on whitespace or semicolons.
func parseTosses(raw string) ([]domain.Toss, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ' ' || r == ';' || r == '\n' || r == '\t'
	})
	tosses := make([]domain.Toss, 0, len(fields))
	for i, f := range fields {
		t, err := iching.ParseToss(f)
		if err != nil {
			return nil, fmt.Errorf("toss %d: %w", i+1, err)
		}
		tosses = append(tosses, t)
	}
	return tosses, nil
}

func (s *Server) handleCast(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (CastResult, error) {
	var in castArgs
	if err := decodeArgs(args, &in); err != nil {
		return CastResult{}, err
	}

	var tosses []domain.Toss
	if strings.TrimSpace(in.Tosses) != "" {
		var err error
		if tosses, err = parseTosses(in.Tosses); err != nil {
			return CastResult{}, err
		}
	} else {
		var src iching.RandomSource
		if in.Seed != nil {
			src = iching.NewSeededSource(*in.Seed)
		}
		resolver := iching.NewResolver(src)
		for len(tosses) < domain.NumberOfTosses {
			tosses = append(tosses, resolver.Toss())
		}
	}

	reading, err := iching.Cast(tosses)
	if err != nil {
		return CastResult{}, fmt.Errorf("cast failed: %w", err)
	}
	res := CastResult{Reading: reading}
	for _, t := range tosses {
		res.Tosses = append(res.Tosses, strings.ReplaceAll(t.String(), ",", ""))
	}

	if s.content != nil {
		text, err := s.content.Text(reading.Hexagram.Number, in.Lang)
		if err != nil {
			return CastResult{}, err
		}
		res.Text = &text
	}

	if in.Intention != "" && s.interpreter != nil {
		req := ports.InterpretationRequest{
			Hexagram:  reading.Hexagram.Number,
			Intention: in.Intention,
			Changing:  reading.Changing.Positions(),
			Locale:    in.Lang,
		}
		if reading.Resulting != nil {
			req.Resulting = reading.Resulting.Number
		}
		text, err := s.interpreter.Interpret(ctx, req)
		if err != nil {
			// The cast stands; report the failure without discarding it.
			s.logger.Warn("MCP cast: interpretation failed", "err", err)
		} else {
			res.Interpretation = text
		}
	}
	s.logger.Debug("MCP cast", "hexagram", reading.Hexagram.Number)
	return res, nil
}

func (s *Server) handleGetHexagram(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (HexagramResult, error) {
	var in hexagramArgs
	if err := decodeArgs(args, &in); err != nil {
		return HexagramResult{}, err
	}
	h, err := iching.HexagramByNumber(in.Number)
	if err != nil {
		return HexagramResult{}, err
	}
	res := HexagramResult{Hexagram: h}
	if s.content == nil {
		return res, nil
	}

	text, err := s.content.Text(in.Number, in.Lang)
	if err != nil {
		return HexagramResult{}, err
	}
	res.Text = &text
	if in.Line != 0 {
		line, err := s.content.LineText(in.Number, in.Line, in.Lang)
		if err != nil {
			return HexagramResult{}, err
		}
		res.Line = &line
	}
	return res, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(HexagramsURI, "The 64 hexagrams",
		mcp.WithResourceDescription("King Wen sequence with patterns and trigrams"),
		mcp.WithMIMEType("application/json"),
	), s.readHexagrams)
}

func (s *Server) readHexagrams(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	jsonBytes, err := json.Marshal(iching.Hexagrams())
	if err != nil {
		return nil, fmt.Errorf("failed to encode hexagrams: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      HexagramsURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
