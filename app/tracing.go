package app

import (
	"context"

	clc "github.com/cloudwego/eino-ext/callbacks/cozeloop"
	"github.com/cloudwego/eino/callbacks"
	"github.com/coze-dev/cozeloop-go"

	"revise/config"
)

// SetupTracing registers the cozeloop handler globally when credentials are
// configured. The returned func flushes and closes the client.
func SetupTracing(ctx context.Context, s *config.Settings) (func(), error) {
	if s.CozeloopAPIToken == "" || s.CozeloopWorkspaceID == "" {
		return func() {}, nil
	}
	client, err := cozeloop.NewClient(
		cozeloop.WithAPIToken(s.CozeloopAPIToken),
		cozeloop.WithWorkspaceID(s.CozeloopWorkspaceID),
	)
	if err != nil {
		return nil, err
	}
	callbacks.AppendGlobalHandlers(clc.NewLoopHandler(client))
	return func() { client.Close(ctx) }, nil
}
