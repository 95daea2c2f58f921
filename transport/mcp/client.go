package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/songboard/songboard/playlist"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// GetMCPServer returns the underlying MCP server for serving over stdio or HTTP.
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Songboard",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Songboard - MCP Interface

This is a thin client that proxies all requests to the REST API server.

Songboard manages live song requests: each user has a playlist with an
enabled flag, an arrangement filter, and an ordered request queue. Every
mutation is broadcast to the WebSocket clients watching that user's room.

AVAILABLE TOOLS:
- get_playlist: Get a user's playlist settings and request queue
- set_requests_enabled: Open or close song requests for a user
- request_song: Queue a song request (duplicates are ignored)
- remove_song_request: Remove a queued request by song id
- list_song_requests: List the queued requests for a user`),
	)

	// Register all tools
	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_playlist",
		Description: "Get a user's playlist settings and song request queue",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id": map[string]interface{}{
					"type":        "string",
					"description": "User whose playlist to fetch",
				},
			},
			Required: []string{"user_id"},
		},
	}, c.handleGetPlaylist)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "set_requests_enabled",
		Description: "Open or close song requests for a user",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id": map[string]interface{}{
					"type":        "string",
					"description": "User whose playlist to change",
				},
				"enabled": map[string]interface{}{
					"type":        "boolean",
					"description": "Whether viewers may request songs",
				},
			},
			Required: []string{"user_id", "enabled"},
		},
	}, c.handleSetRequestsEnabled)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "request_song",
		Description: "Queue a song request for a user",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id": map[string]interface{}{
					"type":        "string",
					"description": "User whose queue to add to",
				},
				"song_id": map[string]interface{}{
					"type":        "string",
					"description": "Catalog id of the requested song",
				},
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Song title (display only)",
				},
				"artist": map[string]interface{}{
					"type":        "string",
					"description": "Song artist (display only)",
				},
			},
			Required: []string{"user_id", "song_id"},
		},
	}, c.handleRequestSong)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "remove_song_request",
		Description: "Remove a queued song request by song id",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id": map[string]interface{}{
					"type":        "string",
					"description": "User whose queue to remove from",
				},
				"song_id": map[string]interface{}{
					"type":        "string",
					"description": "Catalog id of the request to remove",
				},
			},
			Required: []string{"user_id", "song_id"},
		},
	}, c.handleRemoveSongRequest)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_song_requests",
		Description: "List the queued song requests for a user",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id": map[string]interface{}{
					"type":        "string",
					"description": "User whose queue to list",
				},
			},
			Required: []string{"user_id"},
		},
	}, c.handleListSongRequests)
}

// apiCall makes an HTTP call to the REST API
func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Tool handlers

func (c *Client) handleGetPlaylist(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	userID, _ := args["user_id"].(string)

	var p playlist.Playlist
	err := c.apiCall("GET", fmt.Sprintf("/api/users/%s/playlist", userID), nil, &p)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPlaylist(userID, &p)), nil
}

func (c *Client) handleSetRequestsEnabled(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	userID, _ := args["user_id"].(string)
	enabled, _ := args["enabled"].(bool)

	// Fetch first so the arrangement filter survives the update.
	var current playlist.Playlist
	if err := c.apiCall("GET", fmt.Sprintf("/api/users/%s/playlist", userID), nil, &current); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]interface{}{
		"songRequestsEnabled": enabled,
		"songArrangements":    current.SongArrangements,
	}

	var p playlist.Playlist
	if err := c.apiCall("PUT", fmt.Sprintf("/api/users/%s/playlist", userID), body, &p); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	state := "closed"
	if p.SongRequestsEnabled {
		state = "open"
	}
	return mcp.NewToolResultText(fmt.Sprintf("Song requests for %s are now %s", userID, state)), nil
}

func (c *Client) handleRequestSong(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	userID, _ := args["user_id"].(string)
	songID, _ := args["song_id"].(string)
	title, _ := args["title"].(string)
	artist, _ := args["artist"].(string)

	body := playlist.SongRequest{
		SongID: songID,
		Title:  title,
		Artist: artist,
	}

	var p playlist.Playlist
	err := c.apiCall("PUT", fmt.Sprintf("/api/users/%s/requests", userID), body, &p)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Requested %s for %s (%d queued)", songID, userID, len(p.SongRequests))), nil
}

func (c *Client) handleRemoveSongRequest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	userID, _ := args["user_id"].(string)
	songID, _ := args["song_id"].(string)

	var p playlist.Playlist
	err := c.apiCall("DELETE", fmt.Sprintf("/api/users/%s/requests/%s", userID, songID), nil, &p)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Removed %s for %s (%d queued)", songID, userID, len(p.SongRequests))), nil
}

func (c *Client) handleListSongRequests(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	userID, _ := args["user_id"].(string)

	var p playlist.Playlist
	err := c.apiCall("GET", fmt.Sprintf("/api/users/%s/requests", userID), nil, &p)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(p.SongRequests) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No song requests queued for %s", userID)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Song requests for %s:\n\n", userID)
	for i, req := range p.SongRequests {
		fmt.Fprintf(&b, "%d. %s", i+1, req.SongID)
		if req.Title != "" {
			fmt.Fprintf(&b, " - %s", req.Title)
			if req.Artist != "" {
				fmt.Fprintf(&b, " by %s", req.Artist)
			}
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

// formatPlaylist renders a playlist snapshot for tool output.
func formatPlaylist(userID string, p *playlist.Playlist) string {
	var b strings.Builder

	state := "closed"
	if p.SongRequestsEnabled {
		state = "open"
	}
	fmt.Fprintf(&b, "Playlist for %s\n", userID)
	fmt.Fprintf(&b, "Requests: %s\n", state)

	arrangements := make([]string, 0, len(p.SongArrangements))
	for _, a := range p.SongArrangements {
		arrangements = append(arrangements, string(a))
	}
	fmt.Fprintf(&b, "Arrangements: %s\n", strings.Join(arrangements, ", "))
	fmt.Fprintf(&b, "Queued requests: %d\n", len(p.SongRequests))

	return b.String()
}
