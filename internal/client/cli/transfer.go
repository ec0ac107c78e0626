package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/pkowalczyk/filekeeper/internal/proto"
)

const partSuffix = ".part"

// onChunk runs on the read-loop goroutine whenever the server pushes a
// download chunk. Chunks for one path arrive in offset order; they are
// appended to a staging file which becomes the final file on EOF.
func (a *App) onChunk(chunk proto.ChunkMessage) {
	a.dlMu.Lock()
	defer a.dlMu.Unlock()

	f, ok := a.downloads[chunk.Path]
	if !ok {
		if err := os.MkdirAll(a.config.DownloadDir, 0o750); err != nil {
			log.Println(err.Error())
			return
		}
		local := filepath.Join(a.config.DownloadDir, filepath.Base(chunk.Path))
		var err error
		f, err = os.Create(local + partSuffix)
		if err != nil {
			log.Println(err.Error())
			return
		}
		a.downloads[chunk.Path] = f
	}

	data, err := a.codec.Decode(chunk.Data)
	if err == nil {
		_, err = f.Write(data)
	}
	if err != nil {
		log.Println(err.Error())
		f.Close()
		delete(a.downloads, chunk.Path)
		return
	}

	if chunk.EOF {
		name := f.Name()
		f.Close()
		delete(a.downloads, chunk.Path)
		final := name[:len(name)-len(partSuffix)]
		if err := os.Rename(name, final); err != nil {
			log.Println(err.Error())
			return
		}
		printlnFn(fmt.Sprintf("Download complete: %s", final))
	}
}

func (a *App) Download(ctx context.Context, args []string) error {
	path, err := a.argOrPrompt(args, 0, "-Enter path")
	if err != nil {
		return err
	}
	priority, err := a.argOrPrompt(args, 1, "-Enter priority (1-10)")
	if err != nil {
		return err
	}

	// No direct reply on success; chunks start arriving on their own.
	return a.client.Send(map[string]any{
		"type": "REQUEST", "command": "DWL", "path": path, "priority": priority,
	})
}

func (a *App) DownloadAbort(ctx context.Context, args []string) error {
	path, err := a.argOrPrompt(args, 0, "-Enter path")
	if err != nil {
		return err
	}

	if m, ok := a.do(ctx, map[string]any{"type": "REQUEST", "command": "DWLABORT", "path": path}); ok {
		printlnFn(fmt.Sprintf("Aborted: %v", m["data"]))
	}
	return nil
}

func (a *App) DownloadPriority(ctx context.Context, args []string) error {
	path, err := a.argOrPrompt(args, 0, "-Enter path")
	if err != nil {
		return err
	}
	priority, err := a.argOrPrompt(args, 1, "-Enter priority (1-10)")
	if err != nil {
		return err
	}

	if m, ok := a.do(ctx, map[string]any{"type": "REQUEST", "command": "DWLPRI", "path": path, "priority": priority}); ok {
		printlnFn(fmt.Sprintf("Priority changed: %v", m["data"]))
	}
	return nil
}

func (a *App) Upload(ctx context.Context, args []string) error {
	local, err := a.argOrPrompt(args, 0, "-Enter local file")
	if err != nil {
		return err
	}
	path, err := a.argOrPrompt(args, 1, "-Enter remote path")
	if err != nil {
		return err
	}

	f, err := os.Open(local)
	if err != nil {
		log.Println(err.Error())
		return err
	}
	defer f.Close()

	name := filepath.Base(local)
	buf := make([]byte, a.config.UploadChunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			sendErr := a.client.Send(map[string]any{
				"type": "REQUEST", "command": "UPL",
				"path": path, "name": name, "data": a.codec.Encode(buf[:n]),
			})
			if sendErr != nil {
				return sendErr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Println(err.Error())
			return err
		}
	}

	if m, ok := a.do(ctx, map[string]any{"type": "REQUEST", "command": "UPLFIN", "path": path, "name": name}); ok {
		printlnFn(fmt.Sprintf("Uploaded: %v", m["data"]))
	}
	return nil
}
