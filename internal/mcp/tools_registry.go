package mcp

// registerAllTools registers all MCP tools with the registry
func (s *Server) registerAllTools(r *Registry) {
	s.registerFileTools(r)
	if s.supervisor != nil {
		s.registerSupervisorTools(r)
	}
	if s.audit != nil {
		s.registerAuditTools(r)
	}
}

func (s *Server) registerFileTools(r *Registry) {
	Register(r, ToolDef{
		Name: "list_directory",
		Description: `List the contents of a directory inside an allowed directory.

Returns entries sorted directories-first then by name, each with name, path,
type (file/directory), size (files only), and modification time. Entries whose
metadata cannot be read are skipped.`,
	}, s.handleListDirectory)

	Register(r, ToolDef{
		Name: "read_file",
		Description: `Read the full content of a file inside an allowed directory.

Fails if the file exceeds the configured size limit. Binary files return a
placeholder describing the byte length instead of raw content. For large logs,
use read_file_filtered instead.`,
	}, s.handleReadFile)

	Register(r, ToolDef{
		Name: "read_file_filtered",
		Description: `Read a file with tail-window and substring filtering, for large logs.

  tail_lines: consider only the last N lines of the file
  filter_pattern: keep only lines containing this text (case-insensitive)
  max_lines: cap the result (default 1000); truncated flag set when exceeded

The tail window applies before the filter. Exempt from the file size limit.`,
	}, s.handleReadFileFiltered)

	Register(r, ToolDef{
		Name: "write_file",
		Description: `Write content to a file inside an allowed directory.

Overwrites existing files and creates parent directories as needed. Fails in
read-only mode or when the content exceeds the size limit.`,
		Mutating: true,
	}, s.handleWriteFile)

	Register(r, ToolDef{
		Name: "create_directory",
		Description: `Create a directory (and intermediate directories) inside an allowed directory.

Fails if the path already exists or in read-only mode.`,
		Mutating: true,
	}, s.handleCreateDirectory)

	Register(r, ToolDef{
		Name: "delete_path",
		Description: `Delete a file or empty directory inside an allowed directory.

Directories with contents are refused; there is no recursive delete. Fails in
read-only mode.`,
		Mutating: true,
	}, s.handleDeletePath)

	Register(r, ToolDef{
		Name: "search_files",
		Description: `Search file contents under a directory for a text pattern (case-insensitive).

Returns up to max_results matching files (default 100), each with up to 5 line
matches showing line number and a 100-character excerpt. Oversized and
unreadable files are skipped. The candidate set is capped at twice max_results,
so deep trees may return fewer matches than exist.`,
	}, s.handleSearchFiles)
}

func (s *Server) registerSupervisorTools(r *Registry) {
	Register(r, ToolDef{
		Name: "ha_cli",
		Description: `Run an allow-listed Home Assistant CLI command via the Supervisor API.

Supported commands:
  ha addons               list installed add-ons
  ha addons info <slug>   add-on details
  ha addons logs <slug>   add-on logs
  ha supervisor logs      supervisor logs
  ha core logs            Home Assistant core logs
  ha core services        available service domains
  ha core config          core configuration
  ha host logs            host logs

Returns {command, return_code, stdout, stderr, success}. Unsupported commands
report failure in the result, not as a protocol error.`,
	}, s.handleHACLI)

	Register(r, ToolDef{
		Name: "ha_entities",
		Description: `Get all Home Assistant entity states via the Supervisor core API.

Returns the raw JSON state list from /core/api/states.`,
	}, s.handleHAEntities)

	Register(r, ToolDef{
		Name: "ha_entity_registry",
		Description: `Fetch the Home Assistant entity registry over WebSocket.

Includes entities without state (disabled or not yet loaded), with their
platform, device and area assignments.`,
	}, s.handleHAEntityRegistry)
}

func (s *Server) registerAuditTools(r *Registry) {
	Register(r, ToolDef{
		Name: "audit_log",
		Description: `Return recent audit entries for mutating file operations.

Each entry has id, timestamp, tool, path, request_id, success, and error.
Use limit to control how many entries are returned (default 50, newest first).`,
	}, s.handleAuditLog)
}
