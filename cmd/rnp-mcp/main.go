package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/rnp/models"
)

func main() {
	apiURL := os.Getenv("RNP_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8000"
	}
	apiKey := os.Getenv("RNP_API_KEY")

	s := newServer(apiURL, apiKey)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func newServer(apiURL, apiKey string) *server.MCPServer {
	s := server.NewMCPServer(
		"rnp",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	consultarTool := mcp.NewTool("consultar_rnp",
		mcp.WithDescription("Look up a Peruvian supplier by RUC in the National Registry of Suppliers (RNP). Returns its registry codes, business name, email and region."),
		mcp.WithString("ruc",
			mcp.Required(),
			mcp.Description("The supplier's RUC: exactly 11 digits"),
		),
	)
	s.AddTool(consultarTool, handleConsultar(apiURL, apiKey))
	return s
}

func handleConsultar(apiURL, apiKey string) server.ToolHandlerFunc {
	// A lookup drives a real browser through two pages.
	client := &http.Client{Timeout: 200 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ruc, err := request.RequireString("ruc")
		if err != nil {
			return mcp.NewToolResultError("ruc is required"), nil
		}
		ruc = strings.TrimSpace(ruc)

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
			strings.TrimRight(apiURL, "/")+"/consultar/"+url.PathEscape(ruc), nil)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		if apiKey != "" {
			httpReq.Header.Set("X-API-Key", apiKey)
		}

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		return formatResponse(resp.StatusCode, respBody), nil
	}
}

// formatResponse renders an API answer as tool output. Rejections carry an
// ErrorResponse; everything else is a QueryResult.
func formatResponse(status int, body []byte) *mcp.CallToolResult {
	var res models.QueryResult
	if err := json.Unmarshal(body, &res); err != nil || res.Status == "" {
		var rej models.ErrorResponse
		if err := json.Unmarshal(body, &rej); err == nil && rej.Detail != "" {
			return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", rej.Code, rej.Detail))
		}
		return mcp.NewToolResultError(fmt.Sprintf("unexpected API response (HTTP %d)", status))
	}

	if !res.OK() {
		return mcp.NewToolResultError(fmt.Sprintf("[%s] RUC %s: %s", res.Code, res.RUC, res.Error))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "RUC: %s\n", res.RUC)
	fmt.Fprintf(&sb, "Razón social: %s\n", res.InfoValue)
	fmt.Fprintf(&sb, "Email: %s\n", res.Email)
	fmt.Fprintf(&sb, "Región: %s\n", res.Region)
	sb.WriteString("RNP:\n")
	for _, code := range res.RNPs {
		sb.WriteString("  - " + code + "\n")
	}
	return mcp.NewToolResultText(sb.String())
}
