// Package config loads language server definitions from JSON files.
//
// A definition file maps language identifiers to the server command and
// session options used for that language:
//
//	{
//	  "servers": {
//	    "python": {"command": "pylsp", "ignore": ["E501"]},
//	    "go":     {"command": "gopls serve"}
//	  }
//	}
//
// Files merge in order, later files winning per language, so a project
// file can override a user-level one. Updates go through SetServer, which
// rewrites only the affected entry and leaves unknown keys in the file
// untouched.
package config
