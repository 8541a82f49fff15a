package routes

import (
	"bytes"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/yuin/goldmark"

	"github.com/freeflowuniverse/herodesk/pkg/herodesk/api"
	"github.com/freeflowuniverse/herodesk/pkg/vfs"
)

// FilesystemHandler exposes the virtual filesystem to the desktop UI and
// shell commands. It is a thin consumer: every request is one facade call.
type FilesystemHandler struct {
	fs *vfs.VirtualFS
}

// NewFilesystemHandler creates a new FilesystemHandler
func NewFilesystemHandler(fs *vfs.VirtualFS) *FilesystemHandler {
	return &FilesystemHandler{fs: fs}
}

// RegisterRoutes registers filesystem routes to the fiber app
func (h *FilesystemHandler) RegisterRoutes(app *fiber.App) {
	group := app.Group("/api/fs")

	group.Get("/list", h.list)
	group.Get("/read", h.read)
	group.Get("/stat", h.stat)
	group.Get("/exists", h.exists)
	group.Get("/preview", h.preview)
	group.Get("/events", h.events)
	group.Get("/mounts", h.mounts)
	group.Get("/cwd", h.cwd)
	group.Post("/mkdir", h.mkdir)
	group.Post("/write", h.write)
	group.Post("/touch", h.touch)
	group.Post("/move", h.move)
	group.Post("/copy", h.copyEntry)
	group.Post("/symlink", h.symlink)
	group.Post("/chdir", h.chdir)
	group.Post("/mount", h.mount)
	group.Post("/unmount", h.unmount)
	group.Delete("/rm", h.remove)
}

func entryInfo(n vfs.Node) api.EntryInfo {
	meta := n.GetMetadata()
	info := api.EntryInfo{
		Name:       meta.Name,
		Path:       meta.Path,
		Type:       meta.Type.String(),
		CreatedAt:  meta.CreatedAt,
		ModifiedAt: meta.ModifiedAt,
		AccessedAt: meta.AccessedAt,
		Mode:       meta.Mode,
		Owner:      meta.Owner,
		Group:      meta.Group,
	}
	if file, ok := n.(*vfs.FileNode); ok {
		info.Size = file.Size()
		if file.IsSymlink() {
			info.IsSymlink = true
			info.SymlinkTarget = file.SymlinkTarget()
		}
	}
	return info
}

// @Summary List a directory
// @Description List the children of a directory; a non-directory path yields an empty listing
// @Tags filesystem
// @Produce json
// @Param path query string true "Directory path"
// @Param hidden query bool false "Include dotfiles"
// @Success 200 {object} api.ListResponse
// @Router /api/fs/list [get]
func (h *FilesystemHandler) list(c *fiber.Ctx) error {
	path := c.Query("path", "/")
	entries := h.fs.ListDirectory(c.UserContext(), path, c.QueryBool("hidden"))

	out := make([]api.EntryInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryInfo(e))
	}
	return c.JSON(api.ListResponse{Path: path, Entries: out})
}

// @Summary Read a file
// @Description Read file content, following symbolic links
// @Tags filesystem
// @Produce json
// @Param path query string true "File path"
// @Success 200 {object} api.ReadFileResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /api/fs/read [get]
func (h *FilesystemHandler) read(c *fiber.Ctx) error {
	path := c.Query("path")
	data := h.fs.ReadFile(c.UserContext(), path)
	if data == nil {
		return c.Status(fiber.StatusNotFound).JSON(api.ErrorResponse{
			Error: "file not found",
		})
	}
	return c.JSON(api.ReadFileResponse{Path: path, Content: string(data)})
}

// @Summary Stat a path
// @Tags filesystem
// @Produce json
// @Param path query string true "Path"
// @Success 200 {object} api.EntryInfo
// @Failure 404 {object} api.ErrorResponse
// @Router /api/fs/stat [get]
func (h *FilesystemHandler) stat(c *fiber.Ctx) error {
	path := c.Query("path")
	meta := h.fs.Stat(c.UserContext(), path)
	if meta == nil {
		return c.Status(fiber.StatusNotFound).JSON(api.ErrorResponse{
			Error: "entry not found",
		})
	}
	return c.JSON(api.EntryInfo{
		Name:       meta.Name,
		Path:       meta.Path,
		Type:       meta.Type.String(),
		CreatedAt:  meta.CreatedAt,
		ModifiedAt: meta.ModifiedAt,
		AccessedAt: meta.AccessedAt,
		Mode:       meta.Mode,
		Owner:      meta.Owner,
		Group:      meta.Group,
	})
}

// @Summary Check path existence
// @Tags filesystem
// @Produce json
// @Param path query string true "Path"
// @Success 200 {object} api.ExistsResponse
// @Router /api/fs/exists [get]
func (h *FilesystemHandler) exists(c *fiber.Ctx) error {
	return c.JSON(api.ExistsResponse{
		Exists: h.fs.Exists(c.UserContext(), c.Query("path")),
	})
}

// @Summary Preview a markdown file
// @Description Render a .md file to HTML for the file manager preview pane
// @Tags filesystem
// @Produce json
// @Param path query string true "File path"
// @Success 200 {object} api.PreviewResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /api/fs/preview [get]
func (h *FilesystemHandler) preview(c *fiber.Ctx) error {
	path := c.Query("path")
	if !strings.HasSuffix(path, ".md") {
		return c.Status(fiber.StatusBadRequest).JSON(api.ErrorResponse{
			Error: "preview supports markdown files only",
		})
	}
	data := h.fs.ReadFile(c.UserContext(), path)
	if data == nil {
		return c.Status(fiber.StatusNotFound).JSON(api.ErrorResponse{
			Error: "file not found",
		})
	}
	var buf bytes.Buffer
	if err := goldmark.Convert(data, &buf); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(api.ErrorResponse{
			Error: "render failed: " + err.Error(),
		})
	}
	return c.JSON(api.PreviewResponse{Path: path, HTML: buf.String()})
}

// @Summary Recent filesystem events
// @Tags filesystem
// @Produce json
// @Success 200 {array} vfs.Event
// @Router /api/fs/events [get]
func (h *FilesystemHandler) events(c *fiber.Ctx) error {
	return c.JSON(h.fs.RecentEvents())
}

// @Summary Mount table report
// @Tags filesystem
// @Produce json
// @Success 200 {object} api.MountInfoResponse
// @Router /api/fs/mounts [get]
func (h *FilesystemHandler) mounts(c *fiber.Ctx) error {
	return c.JSON(api.MountInfoResponse{Mounts: h.fs.MountInfo()})
}

// @Summary Session working directory
// @Tags filesystem
// @Produce json
// @Success 200 {object} api.CwdResponse
// @Router /api/fs/cwd [get]
func (h *FilesystemHandler) cwd(c *fiber.Ctx) error {
	return c.JSON(api.CwdResponse{Path: h.fs.CurrentDirectory()})
}

// @Summary Create a directory
// @Description Create a directory and every missing intermediate segment
// @Tags filesystem
// @Accept json
// @Produce json
// @Param data body api.MkdirRequest true "Directory path"
// @Success 200 {object} api.SuccessResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /api/fs/mkdir [post]
func (h *FilesystemHandler) mkdir(c *fiber.Ctx) error {
	var req api.MkdirRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(api.ErrorResponse{
			Error: "invalid request: " + err.Error(),
		})
	}
	return c.JSON(api.SuccessResponse{
		Success: h.fs.CreateDirectory(c.UserContext(), req.Path),
	})
}

// @Summary Write a file
// @Description Overwrite or append file content, creating the file when absent
// @Tags filesystem
// @Accept json
// @Produce json
// @Param data body api.WriteFileRequest true "File content"
// @Success 200 {object} api.SuccessResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /api/fs/write [post]
func (h *FilesystemHandler) write(c *fiber.Ctx) error {
	var req api.WriteFileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(api.ErrorResponse{
			Error: "invalid request: " + err.Error(),
		})
	}
	var ok bool
	if req.Append {
		ok = h.fs.AppendFile(c.UserContext(), req.Path, []byte(req.Content))
	} else {
		ok = h.fs.WriteFile(c.UserContext(), req.Path, []byte(req.Content))
	}
	return c.JSON(api.SuccessResponse{Success: ok})
}

// @Summary Create an empty file
// @Tags filesystem
// @Accept json
// @Produce json
// @Param data body api.MkdirRequest true "File path"
// @Success 200 {object} api.SuccessResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /api/fs/touch [post]
func (h *FilesystemHandler) touch(c *fiber.Ctx) error {
	var req api.MkdirRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(api.ErrorResponse{
			Error: "invalid request: " + err.Error(),
		})
	}
	return c.JSON(api.SuccessResponse{
		Success: h.fs.CreateFile(c.UserContext(), req.Path, nil),
	})
}

// @Summary Move an entry
// @Description Copy-then-delete relocation; fails when the destination exists
// @Tags filesystem
// @Accept json
// @Produce json
// @Param data body api.TransferRequest true "Source and destination"
// @Success 200 {object} api.SuccessResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /api/fs/move [post]
func (h *FilesystemHandler) move(c *fiber.Ctx) error {
	var req api.TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(api.ErrorResponse{
			Error: "invalid request: " + err.Error(),
		})
	}
	return c.JSON(api.SuccessResponse{
		Success: h.fs.Move(c.UserContext(), req.Source, req.Destination),
	})
}

// @Summary Copy an entry
// @Description Deep-copy a file or directory subtree
// @Tags filesystem
// @Accept json
// @Produce json
// @Param data body api.TransferRequest true "Source and destination"
// @Success 200 {object} api.SuccessResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /api/fs/copy [post]
func (h *FilesystemHandler) copyEntry(c *fiber.Ctx) error {
	var req api.TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(api.ErrorResponse{
			Error: "invalid request: " + err.Error(),
		})
	}
	return c.JSON(api.SuccessResponse{
		Success: h.fs.Copy(c.UserContext(), req.Source, req.Destination),
	})
}

// @Summary Create a symbolic link
// @Tags filesystem
// @Accept json
// @Produce json
// @Param data body api.SymlinkRequest true "Link and target paths"
// @Success 200 {object} api.SuccessResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /api/fs/symlink [post]
func (h *FilesystemHandler) symlink(c *fiber.Ctx) error {
	var req api.SymlinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(api.ErrorResponse{
			Error: "invalid request: " + err.Error(),
		})
	}
	return c.JSON(api.SuccessResponse{
		Success: h.fs.CreateSymbolicLink(c.UserContext(), req.LinkPath, req.TargetPath),
	})
}

// @Summary Change working directory
// @Tags filesystem
// @Accept json
// @Produce json
// @Param data body api.ChdirRequest true "Directory path"
// @Success 200 {object} api.SuccessResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /api/fs/chdir [post]
func (h *FilesystemHandler) chdir(c *fiber.Ctx) error {
	var req api.ChdirRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(api.ErrorResponse{
			Error: "invalid request: " + err.Error(),
		})
	}
	return c.JSON(api.SuccessResponse{
		Success: h.fs.ChangeDirectory(c.UserContext(), req.Path),
	})
}

// @Summary Mount a share
// @Description Register a mount point, creating the mount directory when missing
// @Tags filesystem
// @Accept json
// @Produce json
// @Param data body api.MountRequest true "Mount parameters"
// @Success 200 {object} api.SuccessResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /api/fs/mount [post]
func (h *FilesystemHandler) mount(c *fiber.Ctx) error {
	var req api.MountRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(api.ErrorResponse{
			Error: "invalid request: " + err.Error(),
		})
	}
	return c.JSON(api.SuccessResponse{
		Success: h.fs.Mount(c.UserContext(), req.Source, req.Path, req.Type, req.Options),
	})
}

// @Summary Unmount a share
// @Tags filesystem
// @Accept json
// @Produce json
// @Param data body api.UnmountRequest true "Unmount parameters"
// @Success 200 {object} api.SuccessResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /api/fs/unmount [post]
func (h *FilesystemHandler) unmount(c *fiber.Ctx) error {
	var req api.UnmountRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(api.ErrorResponse{
			Error: "invalid request: " + err.Error(),
		})
	}
	return c.JSON(api.SuccessResponse{
		Success: h.fs.Unmount(c.UserContext(), req.Path, req.Force),
	})
}

// @Summary Delete an entry
// @Description Delete a file or directory; non-empty directories need recursive
// @Tags filesystem
// @Produce json
// @Param path query string true "Path"
// @Param recursive query bool false "Delete directory contents"
// @Success 200 {object} api.SuccessResponse
// @Router /api/fs/rm [delete]
func (h *FilesystemHandler) remove(c *fiber.Ctx) error {
	return c.JSON(api.SuccessResponse{
		Success: h.fs.Delete(c.UserContext(), c.Query("path"), c.QueryBool("recursive")),
	})
}
