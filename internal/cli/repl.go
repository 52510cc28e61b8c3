// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/relaychat-tui/internal/config"
	"github.com/jeranaias/relaychat-tui/internal/model"
	"github.com/jeranaias/relaychat-tui/internal/util"
)

const replHelp = `Commands:
  /new                     Start a new conversation
  /list                    List saved conversations
  /open <id>               Open a conversation by id
  /image <url> <text>      Send a message with an attached image
  /folders                 List folders
  /folder <name>           File this conversation in a folder
  /prompts                 List prompt templates
  /prompt <name>           Use a template as this conversation's system prompt
  /prompt-save <name> <text>  Save a prompt template
  /tools                   List backend tools
  /clear-history           Clear server-side chat history
  /clear-embeddings        Clear embedded documents
  /embed <file>            Upload a document for retrieval
  /help                    Show this help
  /quit                    Exit`

// REPL runs the interactive line-oriented chat loop.
func (a *App) REPL(ctx context.Context, conv *model.Conversation) error {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	historyFile := a.historyPath()
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.OpenFile(historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
		line.Close()
	}()

	fmt.Fprintf(a.Out, "relaychat — %s (/help for commands)\n", conv.Model.Name)

	for {
		input, err := line.Prompt("> ")
		if err == liner.ErrPromptAborted {
			continue
		}
		if err == io.EOF {
			fmt.Fprintln(a.Out)
			return nil
		}
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			var done bool
			conv, done = a.command(ctx, conv, input)
			if done {
				return nil
			}
			continue
		}

		conv, _ = a.Ask(ctx, conv, input, "", false)
	}
}

// command dispatches a slash command. It returns the (possibly replaced)
// conversation and whether the REPL should exit.
func (a *App) command(ctx context.Context, conv *model.Conversation, input string) (*model.Conversation, bool) {
	cmd, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/q", "/exit":
		return conv, true

	case "/help", "/h":
		fmt.Fprintln(a.Out, replHelp)

	case "/new":
		conv = model.NewConversation("New Conversation", conv.Model)
		a.Store.SaveSelected(conv.ID)
		fmt.Fprintln(a.Out, "started a new conversation")

	case "/list":
		metas, err := a.Store.List()
		if err != nil {
			fmt.Fprintf(a.Out, "error: %v\n", err)
			break
		}
		if len(metas) == 0 {
			fmt.Fprintln(a.Out, "no saved conversations")
			break
		}
		for _, meta := range metas {
			name := util.PadRight(util.TruncateWidth(meta.Name, 30), 30)
			fmt.Fprintf(a.Out, "%s  %s  %d messages\n", meta.ID, name, meta.MessageCount)
		}

	case "/open":
		if arg == "" {
			fmt.Fprintln(a.Out, "usage: /open <id>")
			break
		}
		opened, err := a.Store.Load(arg)
		if err != nil {
			fmt.Fprintf(a.Out, "error: %v\n", err)
			break
		}
		conv = opened
		a.Store.SaveSelected(conv.ID)
		fmt.Fprintf(a.Out, "opened %q\n", conv.Name)

	case "/image":
		url, text, ok := strings.Cut(arg, " ")
		if !ok || url == "" || strings.TrimSpace(text) == "" {
			fmt.Fprintln(a.Out, "usage: /image <url> <text>")
			break
		}
		conv, _ = a.Ask(ctx, conv, strings.TrimSpace(text), url, false)

	case "/folders":
		folders, err := a.Sidebar.Folders()
		if err != nil {
			fmt.Fprintf(a.Out, "error: %v\n", err)
			break
		}
		if len(folders) == 0 {
			fmt.Fprintln(a.Out, "no folders")
			break
		}
		for _, f := range folders {
			fmt.Fprintf(a.Out, "%s  %s\n", util.PadRight(util.TruncateWidth(f.Name, 30), 30), f.Type)
		}

	case "/folder":
		if arg == "" {
			fmt.Fprintln(a.Out, "usage: /folder <name>")
			break
		}
		folder, err := a.fileInFolder(conv, arg)
		if err != nil {
			fmt.Fprintf(a.Out, "error: %v\n", err)
			break
		}
		fmt.Fprintf(a.Out, "filed in %q\n", folder.Name)

	case "/prompts":
		prompts, err := a.Sidebar.Prompts()
		if err != nil {
			fmt.Fprintf(a.Out, "error: %v\n", err)
			break
		}
		if len(prompts) == 0 {
			fmt.Fprintln(a.Out, "no prompt templates")
			break
		}
		for _, p := range prompts {
			name := util.PadRight(util.TruncateWidth(p.Name, 20), 20)
			fmt.Fprintf(a.Out, "%s  %s\n", name, util.TruncateRunes(p.Content, 60))
		}

	case "/prompt":
		if arg == "" {
			fmt.Fprintln(a.Out, "usage: /prompt <name>")
			break
		}
		if !conv.IsEditable() {
			fmt.Fprintln(a.Out, "the conversation already has messages; /new first")
			break
		}
		tmpl, err := a.findPrompt(arg)
		if err != nil {
			fmt.Fprintf(a.Out, "error: %v\n", err)
			break
		}
		conv.Prompt = tmpl.Content
		a.Store.Save(conv)
		fmt.Fprintf(a.Out, "system prompt set from %q\n", tmpl.Name)

	case "/prompt-save":
		name, content, ok := strings.Cut(arg, " ")
		if !ok || name == "" || strings.TrimSpace(content) == "" {
			fmt.Fprintln(a.Out, "usage: /prompt-save <name> <text>")
			break
		}
		if err := a.savePrompt(name, strings.TrimSpace(content)); err != nil {
			fmt.Fprintf(a.Out, "error: %v\n", err)
			break
		}
		fmt.Fprintf(a.Out, "saved template %q\n", name)

	case "/tools":
		tools, err := a.Client.ListTools(ctx)
		if err != nil {
			fmt.Fprintf(a.Out, "error: %v\n", err)
			break
		}
		if len(tools) == 0 {
			fmt.Fprintln(a.Out, "no tools available")
			break
		}
		for _, tool := range tools {
			fmt.Fprintf(a.Out, "%-20s %s\n", tool.Name, tool.Description)
		}

	case "/clear-history":
		if err := a.Client.ClearHistory(ctx, conv.ID, a.ClientID); err != nil {
			fmt.Fprintf(a.Out, "error: %v\n", err)
			break
		}
		fmt.Fprintln(a.Out, "server history cleared")

	case "/clear-embeddings":
		if err := a.Client.ClearEmbeddings(ctx, conv.ID); err != nil {
			fmt.Fprintf(a.Out, "error: %v\n", err)
			break
		}
		conv.Files = nil
		a.Store.Save(conv)
		fmt.Fprintln(a.Out, "embeddings cleared")

	case "/embed":
		if arg == "" {
			fmt.Fprintln(a.Out, "usage: /embed <file>")
			break
		}
		f, err := os.Open(arg)
		if err != nil {
			fmt.Fprintf(a.Out, "error: %v\n", err)
			break
		}
		err = a.Client.EmbedFile(ctx, conv.ID, a.ClientID, filepath.Base(arg), f)
		f.Close()
		if err != nil {
			fmt.Fprintf(a.Out, "error: %v\n", err)
			break
		}
		conv.Files = append(conv.Files, filepath.Base(arg))
		a.Store.Save(conv)
		fmt.Fprintf(a.Out, "embedded %s\n", filepath.Base(arg))

	default:
		fmt.Fprintf(a.Out, "unknown command %s (/help for commands)\n", cmd)
	}

	return conv, false
}

// fileInFolder moves the conversation into the named chat folder,
// creating the folder on first use.
func (a *App) fileInFolder(conv *model.Conversation, name string) (model.Folder, error) {
	folders, err := a.Sidebar.Folders()
	if err != nil {
		return model.Folder{}, err
	}
	for _, f := range folders {
		if f.Type == model.FolderChat && strings.EqualFold(f.Name, name) {
			conv.FolderID = f.ID
			return f, a.Store.Save(conv)
		}
	}

	folder := model.NewFolder(name, model.FolderChat)
	if err := a.Sidebar.SaveFolders(append(folders, folder)); err != nil {
		return model.Folder{}, err
	}
	conv.FolderID = folder.ID
	return folder, a.Store.Save(conv)
}

// findPrompt looks up a prompt template by name, case-insensitively.
func (a *App) findPrompt(name string) (model.Prompt, error) {
	prompts, err := a.Sidebar.Prompts()
	if err != nil {
		return model.Prompt{}, err
	}
	for _, p := range prompts {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return model.Prompt{}, fmt.Errorf("no template named %q", name)
}

// savePrompt stores a template, replacing any existing one with the same
// name.
func (a *App) savePrompt(name, content string) error {
	prompts, err := a.Sidebar.Prompts()
	if err != nil {
		return err
	}
	for i := range prompts {
		if strings.EqualFold(prompts[i].Name, name) {
			prompts[i].Content = content
			return a.Sidebar.SavePrompts(prompts)
		}
	}
	tmpl := model.NewPrompt(name)
	tmpl.Content = content
	return a.Sidebar.SavePrompts(append(prompts, tmpl))
}

func (a *App) historyPath() string {
	dir, err := config.ConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "relaychat_history")
	}
	return filepath.Join(dir, "chat_history")
}
