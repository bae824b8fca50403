// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/oklog/ulid/v2"
	"github.com/poiesic/docchat"
	"github.com/poiesic/docchat/chat"
	"github.com/poiesic/docchat/config"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/ingestion"
	"github.com/poiesic/docchat/search"
	"github.com/urfave/cli/v2"
)

const (
	msgIngestFailed = "Failed to process the document. Check the logs for details."
	msgChatFailed   = "Failed to start the chat session. Check the logs for details."
)

var (
	promptColor = color.New(color.FgCyan, color.Bold)
	answerColor = color.New(color.FgGreen)
	noticeColor = color.New(color.FgYellow)
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "docchat",
		Usage: "Ingest documents into a vector store and chat with them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Dotenv file read before the environment",
				Value: ".env",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Extract, embed and store a PDF or text document",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "overwrite",
						Usage: "Drop and recreate the collection first",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Chunks per embedding call",
						Value: ingestion.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Embedding batches in flight at once",
						Value: 1,
					},
					&cli.BoolFlag{
						Name:  "content-ids",
						Usage: "Derive point IDs from chunk content",
					},
				},
				Action: ingestAction,
			},
			{
				Name:   "count",
				Usage:  "Print the number of vectors in the collection",
				Action: countAction,
			},
			{
				Name:  "collections",
				Usage: "Manage vector collections",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List collection names",
						Action: listCollectionsAction,
					},
					{
						Name:      "delete",
						Usage:     "Delete a collection",
						ArgsUsage: "<name>",
						Action:    deleteCollectionAction,
					},
				},
			},
			{
				Name:  "chat",
				Usage: "Start an interactive chat over the ingested documents",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "session",
						Usage: "Session ID to resume; a new one is generated when empty",
					},
					&cli.IntFlag{
						Name:  "k",
						Usage: "Chunks retrieved per question",
						Value: chat.DefaultK,
					},
				},
				Action: chatAction,
			},
			{
				Name:      "search",
				Usage:     "Print the chunks most similar to a query",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "k",
						Usage: "Number of hits",
						Value: 5,
					},
					&cli.StringFlag{
						Name:  "collection",
						Usage: "Collection to search; defaults to QDRANT_COLLECTION",
					},
					&cli.Float64Flag{
						Name:  "min-score",
						Usage: "Drop hits scoring below this value",
					},
					&cli.Float64Flag{
						Name:  "keyword-boost",
						Usage: "Add this weight times query keyword coverage to each score, then rerank",
					},
				},
				Action: searchAction,
			},
			{
				Name:      "ask",
				Usage:     "Answer a single question and exit",
				ArgsUsage: "<question>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "k",
						Usage: "Chunks retrieved per question",
						Value: chat.DefaultK,
					},
				},
				Action: askAction,
			},
		},
	}
}

func openApp(c *cli.Context, opts ...docchat.Option) (*docchat.App, error) {
	cfg, err := config.LoadFrom(c.String("env-file"))
	if err != nil {
		return nil, err
	}
	return docchat.Open(cfg, opts...)
}

func ingestAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("ingest requires exactly one file argument")
	}
	path := c.Args().First()

	opts := []docchat.Option{
		docchat.WithBatchSize(c.Int("batch-size")),
		docchat.WithConcurrency(c.Int("concurrency")),
		docchat.WithProgress(os.Stderr),
	}
	if c.Bool("content-ids") {
		opts = append(opts, docchat.WithContentIDs())
	}

	app, err := openApp(c, opts...)
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.IngestFile(c.Context, path, c.Bool("overwrite"))
	if err != nil {
		slog.Error("ingestion failed", "path", path, "err", err)
		return cli.Exit(msgIngestFailed, 1)
	}

	fmt.Printf("Stored %d chunks from %s in collection %q (%s)\n",
		len(result.IDs), path, result.Collection, result.Elapsed.Round(time.Millisecond))
	if result.CountErr != nil {
		noticeColor.Fprintf(os.Stderr, "Could not count vectors: %v\n", result.CountErr)
	} else {
		fmt.Printf("Collection now holds %d vectors\n", result.Count)
	}
	if result.ObjectURI != "" {
		fmt.Printf("Uploaded source to %s\n", result.ObjectURI)
	}
	if result.Report != nil {
		if err := result.Report.Err(); err != nil {
			noticeColor.Fprintf(os.Stderr, "Some batches were not embedded: %v\n", err)
		}
	}
	return nil
}

func countAction(c *cli.Context) error {
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	count, err := app.CountVectors(c.Context)
	if err != nil {
		return err
	}
	fmt.Println(count)
	return nil
}

func listCollectionsAction(c *cli.Context) error {
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	names, err := app.Collections().ListCollections(c.Context)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func deleteCollectionAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("delete requires exactly one collection name")
	}
	name := c.Args().First()

	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	err = app.Collections().DeleteCollection(c.Context, name)
	if errors.Is(err, core.ErrCollectionNotFound) {
		noticeColor.Printf("Collection %q does not exist\n", name)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("Deleted collection %q\n", name)
	return nil
}

func searchAction(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("search requires a query")
	}

	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	retriever, err := app.NewRetriever(c.String("collection"), searchOptions(c.Float64("min-score"), c.Float64("keyword-boost"))...)
	if err != nil {
		return err
	}
	hits, err := retriever.RetrieveWithMonitor(c.Context, query, c.Int("k"), search.NewLogMonitor(slog.Default()))
	if err != nil {
		return err
	}
	printHits(os.Stdout, hits)
	return nil
}

func searchOptions(minScore, keywordBoost float64) []search.Option {
	var opts []search.Option
	if minScore != 0 {
		opts = append(opts, search.WithMinScore(float32(minScore)))
	}
	if keywordBoost != 0 {
		opts = append(opts, search.WithKeywordBoost(float32(keywordBoost)))
	}
	return opts
}

func printHits(out io.Writer, hits []core.ScoredChunk) {
	fmt.Fprintf(out, "Found %d hits\n", len(hits))
	for i, hit := range hits {
		fmt.Fprintf(out, "%d: '%s' (%s)[%0.3f]\n", i, hit.Text, hit.Source, hit.Score)
	}
}

func askAction(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("ask requires a question")
	}

	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	svc, err := app.NewChat(c.Context, "", chat.WithK(c.Int("k")))
	if err != nil {
		slog.Error("failed to create chat service", "err", err)
		return cli.Exit(msgChatFailed, 1)
	}
	answerColor.Println(svc.Ask(c.Context, question))
	return nil
}

func chatAction(c *cli.Context) error {
	sessionID := c.String("session")
	if sessionID == "" {
		sessionID = newSessionID()
	}

	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	svc, err := app.NewChat(c.Context, sessionID, chat.WithK(c.Int("k")))
	if err != nil {
		slog.Error("failed to create chat service", "session", sessionID, "err", err)
		return cli.Exit(msgChatFailed, 1)
	}

	noticeColor.Printf("Session %s. Type /help for commands.\n", sessionID)
	return repl(c.Context, svc, os.Stdin, os.Stdout)
}

// repl reads questions from in until EOF or /exit.
func repl(ctx context.Context, svc *chat.Service, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		promptColor.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			done, err := runCommand(ctx, svc, line, out)
			if err != nil {
				slog.Error("chat command failed", "command", line, "err", err)
				noticeColor.Fprintln(out, chat.ReplyTrouble)
				continue
			}
			if done {
				return nil
			}
			continue
		}
		answerColor.Fprintln(out, svc.Ask(ctx, line))
	}
}

// runCommand handles a slash command. It reports whether the session should end.
func runCommand(ctx context.Context, svc *chat.Service, line string, out io.Writer) (bool, error) {
	mem := svc.Memory()
	switch strings.ToLower(line) {
	case "/exit", "/quit":
		return true, nil
	case "/reset":
		if err := mem.Reset(ctx); err != nil {
			return false, err
		}
		noticeColor.Fprintln(out, "Conversation memory cleared.")
	case "/history":
		turns, err := mem.ShortTerm(ctx)
		if err != nil {
			return false, err
		}
		if len(turns) == 0 {
			noticeColor.Fprintln(out, "No recent messages.")
		}
		for _, turn := range turns {
			fmt.Fprintf(out, "%s: %s\n", turn.Role, turn.Content)
		}
	case "/summary":
		if summary := mem.LongTerm(); summary != "" {
			fmt.Fprintln(out, summary)
		} else {
			noticeColor.Fprintln(out, "No summary yet.")
		}
	case "/help":
		fmt.Fprintln(out, "/history  show recent messages")
		fmt.Fprintln(out, "/summary  show the long-term summary")
		fmt.Fprintln(out, "/reset    clear conversation memory")
		fmt.Fprintln(out, "/exit     end the session")
	default:
		noticeColor.Fprintf(out, "Unknown command %s\n", line)
	}
	return false, nil
}

func newSessionID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
