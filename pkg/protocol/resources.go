package protocol

import "strings"

// Resource describes a registered resource capability
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// ResourceTemplate describes a parameterized resource capability
type ResourceTemplate struct {
	URITemplate string `json:"uriTemplate"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// ResourceContent is a single entry in a read result's content list
type ResourceContent struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
}

// ListResourcesResult defines the response for listing resources
type ListResourcesResult struct {
	Resources []Resource `json:"resources"`
}

// ListResourceTemplatesResult defines the response for listing resource templates
type ListResourceTemplatesResult struct {
	ResourceTemplates []ResourceTemplate `json:"resourceTemplates"`
}

// ReadResourceParams defines parameters for reading a resource
type ReadResourceParams struct {
	URI string `json:"uri"`
}

// ReadResourceResult defines the response for reading a resource
type ReadResourceResult struct {
	Contents []ResourceContent `json:"contents"`
}

// MatchURITemplate matches a concrete URI against a brace-delimited
// template like "files://{id}" and extracts the template variables.
// Returns false when the URI does not fit the template's fixed parts.
func MatchURITemplate(template, uri string) (map[string]string, bool) {
	params := make(map[string]string)
	rest := uri

	for len(template) > 0 {
		open := strings.IndexByte(template, '{')
		if open < 0 {
			// No more variables, the remainder must match exactly.
			if rest == template {
				return params, true
			}
			return nil, false
		}

		literal := template[:open]
		if !strings.HasPrefix(rest, literal) {
			return nil, false
		}
		rest = rest[len(literal):]

		closing := strings.IndexByte(template[open:], '}')
		if closing < 0 {
			return nil, false
		}
		name := template[open+1 : open+closing]
		template = template[open+closing+1:]

		// A variable extends to the next literal character in the
		// template, or to the end of the URI for a trailing variable.
		if template == "" {
			if rest == "" {
				return nil, false
			}
			params[name] = rest
			return params, true
		}

		nextOpen := strings.IndexByte(template, '{')
		var delim string
		if nextOpen < 0 {
			delim = template
		} else {
			delim = template[:nextOpen]
		}
		if delim == "" {
			// Adjacent variables are ambiguous; refuse the match.
			return nil, false
		}

		idx := strings.Index(rest, delim)
		if idx <= 0 {
			return nil, false
		}
		params[name] = rest[:idx]
		rest = rest[idx:]
	}

	return params, rest == ""
}
