package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/adeoluwa-dev/chatdocs/internal/models"
	"github.com/adeoluwa-dev/chatdocs/internal/uploader"
)

// chatctl is a small terminal client for the chatdocs API: it logs in,
// drives the upload orchestrator against local PDFs, and streams answers.
func main() {
	app := &cli.App{
		Name:  "chatctl",
		Usage: "talk to a chatdocs server from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Value:   "http://localhost:8080",
				Usage:   "base URL of the chatdocs API",
				EnvVars: []string{"CHATDOCS_SERVER"},
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "bearer token from login",
				EnvVars: []string{"CHATDOCS_TOKEN"},
			},
			&cli.StringFlag{
				Name:    "owner",
				Usage:   "authenticated user id",
				EnvVars: []string{"CHATDOCS_OWNER"},
			},
		},
		Commands: []*cli.Command{
			loginCommand(),
			uploadCommand(),
			filesCommand(),
			askCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:      "login",
		Usage:     "obtain a bearer token",
		ArgsUsage: "EMAIL PASSWORD",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("usage: chatctl login EMAIL PASSWORD")
			}
			body, _ := json.Marshal(map[string]string{
				"email":    c.Args().Get(0),
				"password": c.Args().Get(1),
			})
			resp, err := http.Post(c.String("server")+"/api/login", "application/json", bytes.NewReader(body))
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("login failed: %s", resp.Status)
			}
			var out map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return err
			}
			fmt.Printf("export CHATDOCS_TOKEN=%s\nexport CHATDOCS_OWNER=%s\n", out["token"], out["userId"])
			return nil
		},
	}
}

func uploadCommand() *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "upload one or more PDFs; failures settle independently",
		ArgsUsage: "FILE...",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("no files given")
			}

			client := uploader.NewHTTPUploadClient(c.String("server"), c.String("token"))
			orch, err := uploader.New(client, c.String("owner"), uploader.Options{
				Notify: func(msg string) { fmt.Fprintln(os.Stderr, msg) },
			})
			if err != nil {
				return err
			}
			defer orch.Release()

			var files []uploader.File
			for _, path := range c.Args().Slice() {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				files = append(files, uploader.File{
					Name:        filepath.Base(path),
					Size:        int64(len(data)),
					ContentType: "application/pdf",
					Content:     data,
				})
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			if err := orch.Add(ctx, files); err != nil {
				return err
			}
			orch.Wait()

			for _, t := range orch.Attachments() {
				fmt.Printf("%s\t%s\t%s\n", t.Status, t.ServerID, t.Name)
			}
			return nil
		},
	}
}

func filesCommand() *cli.Command {
	return &cli.Command{
		Name:  "files",
		Usage: "list uploaded documents, newest first",
		Action: func(c *cli.Context) error {
			req, err := http.NewRequest(http.MethodGet,
				fmt.Sprintf("%s/api/files?ownerId=%s", c.String("server"), c.String("owner")), nil)
			if err != nil {
				return err
			}
			req.Header.Set("Authorization", "Bearer "+c.String("token"))

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("list failed: %s", resp.Status)
			}

			var out struct {
				Files []models.Document `json:"files"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return err
			}
			for _, d := range out.Files {
				fmt.Printf("%s\t%s\t%d\t%s\n", d.ID, d.Status, d.SizeBytes, d.OriginalName)
			}
			return nil
		},
	}
}

func askCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "ask a question grounded in the given document ids",
		ArgsUsage: "QUESTION",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "doc", Usage: "document id to ground on (repeatable, id[:name])"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("usage: chatctl ask [--doc ID]... QUESTION")
			}

			var refs []models.DocumentRef
			for _, d := range c.StringSlice("doc") {
				refs = append(refs, models.DocumentRef{ID: d, Name: d})
			}

			payload := map[string]any{
				"messages": []models.ChatMessage{{Role: "user", Content: c.Args().First()}},
				"data":     map[string]any{"files": refs},
			}
			body, _ := json.Marshal(payload)

			req, err := http.NewRequest(http.MethodPost, c.String("server")+"/api/chat", bytes.NewReader(body))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+c.String("token"))

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
				return fmt.Errorf("chat failed: %s %s", resp.Status, msg)
			}

			// Relay tokens as they arrive.
			buf := make([]byte, 4096)
			for {
				n, err := resp.Body.Read(buf)
				if n > 0 {
					os.Stdout.Write(buf[:n])
				}
				if err == io.EOF {
					fmt.Println()
					return nil
				}
				if err != nil {
					return err
				}
			}
		},
	}
}
