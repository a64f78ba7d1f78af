package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/bobmcallan/humcp/internal/registry"
)

// InfoTag groups the listing endpoints in the OpenAPI document.
const InfoTag = "Info"

// FormatTag turns a category name into a display tag: underscores become
// spaces and each word is title-cased ("local_files" becomes "Local Files").
func FormatTag(category string) string {
	s := strings.ReplaceAll(category, "_", " ")
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if prevLetter {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(unicode.ToUpper(r))
		}
		prevLetter = unicode.IsLetter(r)
	}
	return b.String()
}

// Tags returns the OpenAPI tags for regs: the Info tag first, then one tag
// per category sorted by name, each describing its endpoint count.
func Tags(regs []registry.Registration) openapi3.Tags {
	tags := openapi3.Tags{{Name: InfoTag, Description: "Server and tool information endpoints"}}
	grouped := registry.ByCategory(regs)
	for _, cat := range registry.Categories(regs) {
		tag := FormatTag(cat)
		tags = append(tags, &openapi3.Tag{
			Name:        tag,
			Description: fmt.Sprintf("%s tools (%d endpoints)", tag, len(grouped[cat])),
		})
	}
	return tags
}

// OpenAPI returns the generated OpenAPI document.
func (rt *Routes) OpenAPI() *openapi3.T {
	return rt.openapi
}

func (rt *Routes) buildOpenAPI(regs []registry.Registration) (*openapi3.T, error) {
	title := rt.opts.Title
	if title == "" {
		title = "humcp"
	}
	version := rt.opts.Version
	if version == "" {
		version = "dev"
	}

	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info:    &openapi3.Info{Title: title, Version: version},
		Tags:    Tags(regs),
		Paths:   openapi3.NewPaths(),
	}

	list := infoOperation("list_tools", "List tools by category")
	doc.Paths.Set("/tools", &openapi3.PathItem{Get: list})

	category := infoOperation("get_category", "Get the tools of a category")
	category.Parameters = openapi3.Parameters{pathParam("category")}
	category.Responses.Set("404", errorResponse("Category not found"))
	doc.Paths.Set("/tools/{category}", &openapi3.PathItem{Get: category})

	tool := infoOperation("get_tool", "Get a tool's details and input schema")
	tool.Parameters = openapi3.Parameters{pathParam("category"), pathParam("tool_name")}
	tool.Responses.Set("404", errorResponse("Tool not found"))
	doc.Paths.Set("/tools/{category}/{tool_name}", &openapi3.PathItem{Get: tool})

	for _, reg := range regs {
		ep := rt.endpoints[reg.Name]
		input, err := toSchema(ep.model.JSONSchema())
		if err != nil {
			return nil, fmt.Errorf("tool %s: request schema: %w", reg.Name, err)
		}
		summary := reg.Description
		if summary == "" {
			summary = reg.Name
		}
		result := openapi3.NewObjectSchema().WithProperty("result", &openapi3.Schema{})
		result.Required = []string{"result"}
		ok := openapi3.NewResponse().WithDescription("Successful Response").WithJSONSchema(result)

		doc.Paths.Set(reg.Endpoint(), &openapi3.PathItem{Post: &openapi3.Operation{
			OperationID: reg.Name,
			Summary:     summary,
			Tags:        []string{FormatTag(reg.Category)},
			RequestBody: &openapi3.RequestBodyRef{
				Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchema(input),
			},
			Responses: openapi3.NewResponses(
				openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{Value: ok}),
				openapi3.WithStatus(http.StatusBadRequest, errorResponse("Malformed request body")),
				openapi3.WithStatus(http.StatusUnprocessableEntity, errorResponse("Validation Error")),
				openapi3.WithStatus(http.StatusInternalServerError, errorResponse("Tool failed")),
			),
		}})
	}

	return doc, nil
}

func infoOperation(id, summary string) *openapi3.Operation {
	return &openapi3.Operation{
		OperationID: id,
		Summary:     summary,
		Tags:        []string{InfoTag},
		Responses: openapi3.NewResponses(openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().WithDescription("Successful Response"),
		})),
	}
}

func pathParam(name string) *openapi3.ParameterRef {
	return &openapi3.ParameterRef{
		Value: openapi3.NewPathParameter(name).WithSchema(openapi3.NewStringSchema()),
	}
}

func errorResponse(description string) *openapi3.ResponseRef {
	body := openapi3.NewObjectSchema().
		WithProperty("status", openapi3.NewStringSchema()).
		WithProperty("error", openapi3.NewStringSchema()).
		WithProperty("detail", &openapi3.Schema{})
	return &openapi3.ResponseRef{
		Value: openapi3.NewResponse().WithDescription(description).WithJSONSchema(body),
	}
}

// toSchema converts a tool's JSON-Schema map into the typed OpenAPI form.
func toSchema(m map[string]any) (*openapi3.Schema, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var s openapi3.Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
