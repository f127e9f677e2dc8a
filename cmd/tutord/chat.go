package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"aitutor/internal/config"
	"aitutor/internal/llm"
	"aitutor/internal/logging"
	"aitutor/internal/orchestrator"
	"aitutor/internal/retrieval"
	"aitutor/internal/store"
	"aitutor/internal/types"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	metaStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func newChatCmd() *cobra.Command {
	var studentID, subject string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive tutoring session in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), studentID, subject)
		},
	}
	cmd.Flags().StringVar(&studentID, "student", "local", "student identifier")
	cmd.Flags().StringVar(&subject, "subject", "", "pin the session subject")
	return cmd
}

func runChat(ctx context.Context, studentID, subject string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, _, err := logging.New("error", false) // keep the REPL quiet
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := store.Open(cfg.Database.Path, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	gemini, err := llm.NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Timeout, logger)
	if err != nil {
		return err
	}

	engine := orchestrator.New(orchestrator.Deps{
		LLM:         gemini,
		Search:      retrieval.NewHTTPSearcher(cfg.Retrieval.BaseURL, cfg.Retrieval.Timeout, logger),
		Library:     db,
		Mastery:     db,
		Profile:     db,
		Checkpoints: db,
		Log:         logger,
		Syllabus:    cfg.Retrieval.Syllabus,
	})

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		renderer = nil
	}

	sessionID := uuid.NewString()
	fmt.Println(metaStyle.Render("session " + sessionID + " — type 'bye' to finish"))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("you> "))
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		resp := engine.ProcessTurn(ctx, types.TurnRequest{
			SessionID: sessionID,
			UserInput: input,
			Student:   types.StudentSeed{StudentID: studentID},
			Content:   types.ContentSeed{Subject: subject},
		})

		printResponse(renderer, resp)
		if resp.ResponseType == types.ResponseGoodbye {
			return nil
		}
		// Only pin the subject on the first turn; afterwards the session
		// lock owns it.
		subject = ""
	}
	return scanner.Err()
}

func printResponse(renderer *glamour.TermRenderer, resp types.TurnResponse) {
	body := resp.Response
	if renderer != nil {
		if out, err := renderer.Render(body); err == nil {
			body = out
		}
	}
	if resp.ResponseType == types.ResponseError {
		fmt.Println(errStyle.Render(body))
		return
	}
	fmt.Print(body)
	if !strings.HasSuffix(body, "\n") {
		fmt.Println()
	}
	meta := fmt.Sprintf("[%s · intent=%s · turn=%d", resp.ResponseType, resp.Intent, resp.Metadata.TurnCount)
	if resp.Metadata.DetectedSubject != "" {
		meta += " · subject=" + resp.Metadata.DetectedSubject
	}
	if resp.QuizActive {
		meta += " · quiz open"
	}
	meta += "]"
	fmt.Println(metaStyle.Render(meta))
}
