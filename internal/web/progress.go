package web

import (
	"image-optimizer-go/internal/media"
	"image-optimizer-go/internal/optimizer"
)

// wsProgress forwards per-file events of one job to WebSocket clients.
type wsProgress struct {
	server *Server
	jobID  string
}

func (p *wsProgress) Started(file media.ImageFile) {
	p.server.broadcastWSMessage("file_started", map[string]interface{}{
		"job_id": p.jobID,
		"path":   file.Path,
		"format": file.Format.String(),
	})
}

func (p *wsProgress) Finished(file media.ImageFile, outcome optimizer.Outcome, err error) {
	data := map[string]interface{}{
		"job_id": p.jobID,
		"path":   file.Path,
	}
	if err != nil {
		data["error"] = err.Error()
	} else {
		data["status"] = outcome.Status.String()
		data["output"] = outcome.OutputPath
		data["original_size"] = outcome.OriginalSize
		data["optimized_size"] = outcome.OptimizedSize
		data["saved"] = outcome.Saved
	}
	p.server.broadcastWSMessage("file_finished", data)
}
