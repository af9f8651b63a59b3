// Package slackbot runs the Socket Mode surface: slash commands, modals,
// and conversational shortcuts for provisioning DevLake projects.
package slackbot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/ftpr-metrics/devlake-bot/internal/config"
	"github.com/ftpr-metrics/devlake-bot/internal/devlake"
)

const projectsPageSize = 10

// Bot ties the Slack Socket Mode client to the DevLake provisioner.
type Bot struct {
	api    *slack.Client
	socket *socketmode.Client
	prov   *devlake.Provisioner
	cfg    *config.Config
	log    zerolog.Logger
	selfID string
}

func New(cfg *config.Config, prov *devlake.Provisioner, log zerolog.Logger) *Bot {
	api := slack.New(cfg.SlackBotToken, slack.OptionAppLevelToken(cfg.SlackAppToken))
	return &Bot{
		api:    api,
		socket: socketmode.New(api),
		prov:   prov,
		cfg:    cfg,
		log:    log,
	}
}

// Run connects to Slack and processes events until the context is done.
func (b *Bot) Run(ctx context.Context) error {
	auth, err := b.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack auth test: %w", err)
	}
	b.selfID = auth.UserID
	b.log.Info().Str("bot_user", auth.User).Msg("connected to Slack")

	go func() {
		for evt := range b.socket.Events {
			b.handleEvent(ctx, evt)
		}
	}()

	return b.socket.RunContext(ctx)
}

func (b *Bot) handleEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		b.log.Debug().Msg("connecting to Slack")
	case socketmode.EventTypeConnectionError:
		b.log.Warn().Msg("Slack connection error, retrying")
	case socketmode.EventTypeConnected:
		b.log.Debug().Msg("connected to Slack socket")
	case socketmode.EventTypeSlashCommand:
		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok {
			return
		}
		b.socket.Ack(*evt.Request)
		b.handleSlashCommand(ctx, cmd)
	case socketmode.EventTypeInteractive:
		callback, ok := evt.Data.(slack.InteractionCallback)
		if !ok {
			return
		}
		b.handleInteraction(ctx, evt, callback)
	case socketmode.EventTypeEventsAPI:
		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		b.socket.Ack(*evt.Request)
		b.handleEventsAPI(ctx, apiEvent)
	}
}

func (b *Bot) handleSlashCommand(ctx context.Context, cmd slack.SlashCommand) {
	b.log.Info().Str("command", cmd.Command).Str("user", cmd.UserID).Msg("slash command")

	switch cmd.Command {
	case "/devlake-create-project":
		modal := createProjectModal(cmd.ChannelID)
		if _, err := b.api.OpenViewContext(ctx, cmd.TriggerID, modal); err != nil {
			b.log.Error().Err(err).Msg("open create-project modal")
			b.ephemeral(ctx, cmd.ChannelID, cmd.UserID, "❌ Could not open the form. Please try again.")
		}
	case "/devlake-add-repos":
		data, err := b.prov.FetchFormData()
		if err != nil {
			b.log.Error().Err(err).Msg("fetch form data")
			b.ephemeral(ctx, cmd.ChannelID, cmd.UserID, fmt.Sprintf("❌ Could not load connections and projects: %s", err))
			return
		}
		if len(data.GitHubConnections)+len(data.GitLabConnections) == 0 {
			b.ephemeral(ctx, cmd.ChannelID, cmd.UserID, "❌ No connections found. Create a project first with `/devlake-create-project`.")
			return
		}
		modal := addReposModal(cmd.ChannelID, data)
		if _, err := b.api.OpenViewContext(ctx, cmd.TriggerID, modal); err != nil {
			b.log.Error().Err(err).Msg("open add-repos modal")
			b.ephemeral(ctx, cmd.ChannelID, cmd.UserID, "❌ Could not open the form. Please try again.")
		}
	case "/devlake-list-projects":
		b.sendProjectsPage(ctx, cmd.ChannelID, cmd.UserID, "", 1)
	case "/devlake-list-all":
		projects, err := b.prov.ListAllProjects()
		if err != nil {
			b.ephemeral(ctx, cmd.ChannelID, cmd.UserID, fmt.Sprintf("❌ Could not list projects: %s", err))
			return
		}
		b.ephemeral(ctx, cmd.ChannelID, cmd.UserID, allProjectsMessage(projects))
	case "/devlake-requirements":
		b.ephemeral(ctx, cmd.ChannelID, cmd.UserID, requirementsText())
	case "/devlake-help":
		b.ephemeral(ctx, cmd.ChannelID, cmd.UserID, helpText(b.cfg.DashboardURL))
	}
}

func (b *Bot) handleInteraction(ctx context.Context, evt socketmode.Event, callback slack.InteractionCallback) {
	switch callback.Type {
	case slack.InteractionTypeViewSubmission:
		b.handleViewSubmission(ctx, evt, callback)
	case slack.InteractionTypeBlockActions:
		b.socket.Ack(*evt.Request)
		b.handleBlockActions(ctx, callback)
	default:
		b.socket.Ack(*evt.Request)
	}
}

func (b *Bot) handleViewSubmission(ctx context.Context, evt socketmode.Event, callback slack.InteractionCallback) {
	channelID := callback.View.PrivateMetadata
	userID := callback.User.ID

	switch callback.View.CallbackID {
	case createProjectCallbackID:
		sub, errs := parseCreateSubmission(&callback.View)
		if len(errs) > 0 {
			b.socket.Ack(*evt.Request, slack.NewErrorsViewSubmissionResponse(errs))
			return
		}
		b.socket.Ack(*evt.Request)
		go b.runCreateProject(ctx, channelID, userID, sub)
	case addReposCallbackID:
		sub, err := parseAddReposSubmission(&callback.View)
		if err != nil {
			b.socket.Ack(*evt.Request)
			b.ephemeral(ctx, channelID, userID, fmt.Sprintf("❌ %s", err))
			return
		}
		b.socket.Ack(*evt.Request)
		go b.runAddRepos(ctx, channelID, userID, sub)
	default:
		b.socket.Ack(*evt.Request)
	}
}

func (b *Bot) runCreateProject(ctx context.Context, channelID, userID string, sub *createSubmission) {
	b.ephemeral(ctx, channelID, userID,
		fmt.Sprintf("⏳ Creating project *%s*... This may take a minute.", sub.ProjectName))

	req := &devlake.MultiPlatformRequest{
		ProjectName: sub.ProjectName,
		Schedule:    sub.Schedule,
		GitHub: devlake.PlatformRequest{
			Repos: sub.GitHubRepos,
			Token: sub.GitHubToken,
		},
		GitLab: devlake.PlatformRequest{
			Repos: sub.GitLabRepos,
			Token: sub.GitLabToken,
		},
	}

	result, err := b.prov.CreateMultiPlatformProject(req)
	if err != nil {
		b.log.Error().Err(err).Str("project", sub.ProjectName).Msg("create project failed")
		b.ephemeral(ctx, channelID, userID, createFailureMessage(err))
		return
	}

	b.ephemeral(ctx, channelID, userID,
		createSuccessMessage(result, devlake.ScheduleLabel(sub.Schedule), sub.GitHubRepos, sub.GitLabRepos))
	b.post(ctx, channelID,
		fmt.Sprintf("🎉 *%s* has been onboarded to DevLake! Dashboard: %s", result.Project, result.DashboardURL))
}

func (b *Bot) runAddRepos(ctx context.Context, channelID, userID string, sub *addReposSubmission) {
	b.ephemeral(ctx, channelID, userID,
		fmt.Sprintf("⏳ Adding %d repo%s to *%s*...", len(sub.Repos), plural(len(sub.Repos)), sub.ProjectName))

	result, err := b.prov.AddRepos(sub.ProjectName, sub.Plugin, sub.ConnectionID, sub.Repos)
	if err != nil {
		b.log.Error().Err(err).Str("project", sub.ProjectName).Msg("add repos failed")
		b.ephemeral(ctx, channelID, userID, fmt.Sprintf("❌ Failed to add repos: %s", err))
		return
	}
	b.ephemeral(ctx, channelID, userID, addReposMessage(result))
}

func (b *Bot) handleBlockActions(ctx context.Context, callback slack.InteractionCallback) {
	for _, action := range callback.ActionCallback.BlockActions {
		if !strings.HasPrefix(action.ActionID, actionPagePrefix) {
			continue
		}
		page, err := strconv.Atoi(action.Value)
		if err != nil || page < 1 {
			page = 1
		}
		b.sendProjectsPage(ctx, callback.Channel.ID, callback.User.ID, callback.ResponseURL, page)
	}
}

// sendProjectsPage posts one page of the project list. When responseURL is
// set the previous ephemeral message is replaced in place.
func (b *Bot) sendProjectsPage(ctx context.Context, channelID, userID, responseURL string, page int) {
	list, err := b.prov.GetProjects(page, projectsPageSize)
	if err != nil {
		b.ephemeral(ctx, channelID, userID, fmt.Sprintf("❌ Could not list projects: %s", err))
		return
	}
	if list.Count == 0 {
		b.ephemeral(ctx, channelID, userID, "No projects found. Create one with `/devlake-create-project`.")
		return
	}

	blocks := projectListBlocks(list, page, projectsPageSize)
	opts := []slack.MsgOption{slack.MsgOptionBlocks(blocks...)}
	if responseURL != "" {
		opts = append(opts, slack.MsgOptionReplaceOriginal(responseURL))
	}
	if _, err := b.api.PostEphemeralContext(ctx, channelID, userID, opts...); err != nil {
		b.log.Error().Err(err).Msg("post project list")
	}
}

func (b *Bot) handleEventsAPI(ctx context.Context, apiEvent slackevents.EventsAPIEvent) {
	if apiEvent.Type != slackevents.CallbackEvent {
		return
	}
	switch ev := apiEvent.InnerEvent.Data.(type) {
	case *slackevents.AppMentionEvent:
		b.handleChat(ctx, ev.Channel, ev.User, ev.Text)
	case *slackevents.MessageEvent:
		if ev.ChannelType != "im" || ev.SubType == "bot_message" || ev.BotID != "" || ev.User == b.selfID {
			return
		}
		b.handleChat(ctx, ev.Channel, ev.User, ev.Text)
	}
}

// handleChat routes mention and DM text by keyword.
func (b *Bot) handleChat(ctx context.Context, channelID, userID, text string) {
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, "requirements", "token", "pat", "scope"):
		b.ephemeral(ctx, channelID, userID, requirementsText())
	case strings.Contains(lower, "help"):
		b.ephemeral(ctx, channelID, userID, helpText(b.cfg.DashboardURL))
	case strings.Contains(lower, "list") && strings.Contains(lower, "all"):
		projects, err := b.prov.ListAllProjects()
		if err != nil {
			b.ephemeral(ctx, channelID, userID, fmt.Sprintf("❌ Could not list projects: %s", err))
			return
		}
		b.ephemeral(ctx, channelID, userID, allProjectsMessage(projects))
	case containsAny(lower, "list", "projects"):
		b.sendProjectsPage(ctx, channelID, userID, "", 1)
	case strings.Contains(lower, "create"):
		b.ephemeral(ctx, channelID, userID, "To create a project, use the `/devlake-create-project` slash command. It opens a form where tokens stay out of the channel history.")
	default:
		b.ephemeral(ctx, channelID, userID, "👋 Hi! I help onboard repositories to DevLake. Try `/devlake-help` to see what I can do.")
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func (b *Bot) ephemeral(ctx context.Context, channelID, userID, text string) {
	if _, err := b.api.PostEphemeralContext(ctx, channelID, userID, slack.MsgOptionText(text, false)); err != nil {
		b.log.Error().Err(err).Str("channel", channelID).Msg("post ephemeral message")
	}
}

func (b *Bot) post(ctx context.Context, channelID, text string) {
	if _, _, err := b.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false)); err != nil {
		b.log.Error().Err(err).Str("channel", channelID).Msg("post message")
	}
}
