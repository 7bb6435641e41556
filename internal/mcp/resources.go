package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

var resActivityCatalog = mcp.NewResource(
	"healthdash://activity_catalog",
	"Activity Catalog",
	mcp.WithResourceDescription("All workout activity types present in the processed export, plus whether the export has been processed at all"),
	mcp.WithMIMEType("application/json"),
)

func (h *handlers) activityCatalog(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	activities, err := h.ds.Activities()
	if err != nil {
		return nil, err
	}
	if activities == nil {
		activities = []string{}
	}

	data, err := json.Marshal(map[string]any{
		"processed":  h.ds.Processed(),
		"activities": activities,
	})
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
