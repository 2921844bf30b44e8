package playfab

import (
	"context"
	"fmt"

	"github.com/mcooley/PlayFabExport/internal/model"
)

// ExportPlayersInSegment starts an asynchronous export of segmentID.
func (c *Client) ExportPlayersInSegment(ctx context.Context, segmentID string) (*ExportPlayersInSegmentResult, error) {
	var resp ExportPlayersInSegmentResult
	req := ExportPlayersInSegmentRequest{SegmentID: segmentID}
	if err := c.post(ctx, "/Admin/ExportPlayersInSegment", req, &resp); err != nil {
		return nil, fmt.Errorf("export players in segment %s: %w", segmentID, err)
	}
	return &resp, nil
}

// GetSegmentExport fetches the current state of an export.
func (c *Client) GetSegmentExport(ctx context.Context, exportID string) (*GetSegmentExportResult, error) {
	var resp GetSegmentExportResult
	req := GetSegmentExportRequest{ExportID: exportID}
	if err := c.post(ctx, "/Admin/GetSegmentExport", req, &resp); err != nil {
		return nil, fmt.Errorf("get segment export %s: %w", exportID, err)
	}
	return &resp, nil
}

// StartExport implements the export coordinator's job-start call.
func (c *Client) StartExport(ctx context.Context, segmentID string) (string, error) {
	resp, err := c.ExportPlayersInSegment(ctx, segmentID)
	if err != nil {
		return "", err
	}
	if resp.ExportID == "" {
		return "", &APIError{StatusCode: 200, Message: "start export returned no export id"}
	}
	return resp.ExportID, nil
}

// ExportStatus implements the export coordinator's job-status call. Any
// state other than Complete, or Complete without an index URL, is reported
// as pending.
func (c *Client) ExportStatus(ctx context.Context, exportID string) (model.ExportJob, error) {
	resp, err := c.GetSegmentExport(ctx, exportID)
	if err != nil {
		return model.ExportJob{}, err
	}

	job := model.ExportJob{ID: exportID, State: model.ExportPending}
	if resp.State == StateComplete && resp.IndexURL != "" {
		job.Complete(resp.IndexURL)
	} else {
		c.logger.Debug("export not complete", "export_id", exportID, "state", resp.State)
	}
	return job, nil
}
