package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/youssefsiam38/agentdesk"
	"github.com/youssefsiam38/agentdesk/commands"
	"github.com/youssefsiam38/agentdesk/provider"
	"github.com/youssefsiam38/agentdesk/storage/filestore"
)

// ScriptedProviderName is the provider registered by NewClient.
const ScriptedProviderName = "scripted"

// ReplyFunc answers one prompt.
type ReplyFunc func(ctx context.Context, prompt string) (string, error)

// Echo answers every prompt with "echo".
func Echo(context.Context, string) (string, error) {
	return "echo", nil
}

// Block answers only once ctx is cancelled, keeping tasks running.
func Block(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

type scriptedProvider struct {
	reply ReplyFunc
}

func (p *scriptedProvider) Name() string { return ScriptedProviderName }

func (p *scriptedProvider) Instruct(ctx context.Context, prompt string) (string, error) {
	return p.reply(ctx, prompt)
}

// ScriptedRegistry returns a registry with one provider answering through
// reply. Its options are AI_MODEL and API_KEY.
func ScriptedRegistry(reply ReplyFunc) *provider.Registry {
	return provider.NewRegistry(provider.Definition{
		Name:     ScriptedProviderName,
		Options:  []string{provider.KeyModel, "API_KEY"},
		Defaults: map[string]string{provider.KeyModel: "tiny"},
		New: func(provider.Settings) (provider.Provider, error) {
			return &scriptedProvider{reply: reply}, nil
		},
	})
}

// NewClient starts a client over a file store in a temporary directory.
// Agents answer through reply; the command catalog holds "Read File" and
// "Web Search". The client is stopped when the test ends.
func NewClient(t *testing.T, reply ReplyFunc, agents ...string) *agentdesk.Client {
	t.Helper()

	client, err := agentdesk.NewClient(filestore.New(t.TempDir()), &agentdesk.ClientConfig{
		Providers:       ScriptedRegistry(reply),
		DefaultProvider: ScriptedProviderName,
		Commands:        commands.NewCatalog("Read File", "Web Search"),
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	ctx := context.Background()
	if err := client.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Stop(ctx)
	})

	for _, name := range agents {
		if _, err := client.CreateAgent(ctx, name, nil); err != nil {
			t.Fatalf("CreateAgent(%q) error = %v", name, err)
		}
	}
	return client
}
