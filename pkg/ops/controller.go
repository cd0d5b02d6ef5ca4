// Package ops implements the operation controllers (memorize, recall,
// forget, refine): the layer that composes prompts, drives the tool
// runtime's LLM loop, and reconciles what actually happened in the
// repository against what the model claims happened.
package ops

import (
	"github.com/agenticmem/memoryd/pkg/appconfig"
	"github.com/agenticmem/memoryd/pkg/fileio"
	"github.com/agenticmem/memoryd/pkg/llm"
	"github.com/agenticmem/memoryd/pkg/prompt"
	"github.com/agenticmem/memoryd/pkg/refine"
	"github.com/agenticmem/memoryd/pkg/store"
	"github.com/agenticmem/memoryd/pkg/toolruntime"
)

// Controller wires one operation request through the tool runtime against
// a tenant-scoped repository. A single Controller is shared across
// requests; all per-request state lives in the toolruntime.RequestContext
// each method constructs for itself.
type Controller struct {
	Repo      *store.Repository
	Runtime   *toolruntime.Runtime
	Prompts   prompt.Builder
	Files     *fileio.Reader
	Executor  *refine.Executor
	Config    *appconfig.Config
	AgentModel string
}

// New builds a Controller from its collaborators.
func New(repo *store.Repository, llmClient llm.Client, prompts prompt.Builder, files *fileio.Reader, cfg *appconfig.Config, agentModel string) *Controller {
	rt := &toolruntime.Runtime{
		Repo:           repo,
		LLMClient:      llmClient,
		Prompts:        prompts,
		Files:          files,
		AnalysisModel:  agentModel,
		AgentModel:     agentModel,
		AnalysisTokens: appconfig.DefaultAnalysisTokenCap,
		AgentTokens:    appconfig.DefaultAgentTokenCap,
	}
	return &Controller{
		Repo:       repo,
		Runtime:    rt,
		Prompts:    prompts,
		Files:      files,
		Executor:   refine.NewExecutor(repo),
		Config:     cfg,
		AgentModel: agentModel,
	}
}

func (c *Controller) maxToolIterations() int {
	if c.Config != nil && c.Config.MaxToolIterations > 0 {
		return c.Config.MaxToolIterations
	}
	return appconfig.DefaultMaxToolIterations
}

func (c *Controller) maxSearchIterations() int {
	if c.Config != nil && c.Config.MaxSearchIterations > 0 {
		return c.Config.MaxSearchIterations
	}
	return appconfig.DefaultMaxSearchIterations
}

func (c *Controller) accessTrackingTopN() int {
	if c.Config != nil && c.Config.AccessTrackingTopN > 0 {
		return c.Config.AccessTrackingTopN
	}
	return appconfig.DefaultAccessTrackingTopN
}

func (c *Controller) accessTrackingEnabled() bool {
	if c.Config == nil {
		return appconfig.DefaultAccessTrackingEnabled
	}
	return c.Config.AccessTrackingEnabled
}
