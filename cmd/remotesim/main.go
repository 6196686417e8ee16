// Package main is a standalone simulator for the remote quotes endpoint.
//
// It implements the external contract the sync client expects: GET /posts
// returns a posts-style JSON array, POST /posts accepts a pushed snapshot and
// answers with a JSON body. Useful for local development and the integration
// suite when no real endpoint is available.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-sync/internal/platform/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", ":9090", "listen address")
	flag.Parse()

	logger := logging.New(&logging.Config{
		Level:   "info",
		Format:  "text",
		Service: "remotesim",
	})

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	sim := newSimulator(logger)
	engine.GET("/posts", sim.listPosts)
	engine.POST("/posts", sim.acceptPush)

	logger.Info("remote simulator listening", slog.String("addr", *addr))

	return engine.Run(*addr)
}

// post mirrors the external record shape the sync client translates.
type post struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"userId"`
	Title  string `json:"title"`
}

// pushBody is the write-side payload the service sends. Quote fields beyond
// the contract are accepted and ignored.
type pushBody struct {
	Quotes []struct {
		Text     string `json:"text"`
		Category string `json:"category"`
	} `json:"quotes"`
	Timestamp int64 `json:"timestamp"`
}

// simulator serves a fixed seed list and records the most recent push so the
// endpoint can be poked by hand during development.
type simulator struct {
	logger *slog.Logger

	mu         sync.Mutex
	lastPushed int
	lastPushAt time.Time
}

func newSimulator(logger *slog.Logger) *simulator {
	return &simulator{logger: logger}
}

// seedPosts is the fixed remote snapshot. Even and odd user ids are mixed so
// the client's category derivation exercises both branches.
var seedPosts = []post{
	{ID: 1, UserID: 1, Title: "The only way to do great work is to love what you do."},
	{ID: 2, UserID: 2, Title: "Simplicity is the ultimate sophistication."},
	{ID: 3, UserID: 3, Title: "Stay hungry, stay foolish."},
	{ID: 4, UserID: 4, Title: "Programs must be written for people to read."},
	{ID: 5, UserID: 5, Title: "Talk is cheap. Show me the code."},
	{ID: 6, UserID: 6, Title: "Premature optimization is the root of all evil."},
}

func (s *simulator) listPosts(c *gin.Context) {
	c.JSON(http.StatusOK, seedPosts)
}

func (s *simulator) acceptPush(c *gin.Context) {
	var body pushBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed push payload"})
		return
	}

	s.mu.Lock()
	s.lastPushed = len(body.Quotes)
	s.lastPushAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("accepted pushed snapshot",
		slog.Int("quotes", len(body.Quotes)),
		slog.Int64("timestamp", body.Timestamp),
	)

	c.JSON(http.StatusCreated, gin.H{
		"received":  len(body.Quotes),
		"timestamp": body.Timestamp,
	})
}
