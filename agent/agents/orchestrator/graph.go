package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	nodex "github.com/tanpawarit/chative-intent-router/agent/nodes/orchestrator"
)

func (o *Orchestrator) compileHandleMessageGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode(nodex.NodeValidateRequest,
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodex.NodeValidateRequest, err)
	}

	if err := graph.AddLambdaNode(nodex.NodeLoadOrCreateState,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadOrCreateState(ctx, in, o.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodex.NodeLoadOrCreateState, err)
	}

	if err := graph.AddLambdaNode(nodex.NodeReadTranscript,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ReadTranscript(ctx, in, o.transcripts)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodex.NodeReadTranscript, err)
	}

	if err := graph.AddLambdaNode(nodex.NodeResolveInterrupt,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ResolveInterrupt(ctx, in, o.interrupts)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodex.NodeResolveInterrupt, err)
	}

	if err := graph.AddLambdaNode(nodex.NodeClassifyIntent,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ClassifyIntent(ctx, in, o.oracle)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodex.NodeClassifyIntent, err)
	}

	if err := graph.AddLambdaNode(nodex.NodeDispatchHandler,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.DispatchHandler(ctx, in, o.handlers, o.maxHistory)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodex.NodeDispatchHandler, err)
	}

	if err := graph.AddLambdaNode(nodex.NodeApplyOutcome,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ApplyOutcome(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodex.NodeApplyOutcome, err)
	}

	if err := graph.AddLambdaNode(nodex.NodeValidateAndSaveState,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ValidateAndSaveState(ctx, in, o.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodex.NodeValidateAndSaveState, err)
	}

	if err := graph.AddLambdaNode(nodex.NodeFinalizeReply,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodex.NodeFinalizeReply, err)
	}

	resumeBranch := compose.NewGraphBranch(
		nodex.RouteAfterResolve,
		map[string]bool{
			nodex.NodeClassifyIntent:  true,
			nodex.NodeDispatchHandler: true,
		},
	)
	if err := graph.AddBranch(nodex.NodeResolveInterrupt, resumeBranch); err != nil {
		return nil, fmt.Errorf("add branch after %s: %w", nodex.NodeResolveInterrupt, err)
	}

	edges := [][2]string{
		{compose.START, nodex.NodeValidateRequest},
		{nodex.NodeValidateRequest, nodex.NodeLoadOrCreateState},
		{nodex.NodeLoadOrCreateState, nodex.NodeReadTranscript},
		{nodex.NodeReadTranscript, nodex.NodeResolveInterrupt},
		{nodex.NodeClassifyIntent, nodex.NodeDispatchHandler},
		{nodex.NodeDispatchHandler, nodex.NodeApplyOutcome},
		{nodex.NodeApplyOutcome, nodex.NodeValidateAndSaveState},
		{nodex.NodeValidateAndSaveState, nodex.NodeFinalizeReply},
		{nodex.NodeFinalizeReply, compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_message"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
