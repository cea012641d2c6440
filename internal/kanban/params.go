package kanban

import (
	"fmt"
	"net/url"

	"github.com/oapi-codegen/runtime"
)

// pathParam renders a path parameter in OpenAPI "simple" style.
func pathParam(name string, value any) (string, error) {
	param, err := runtime.StyleParamWithLocation("simple", false, name, runtime.ParamLocationPath, value)
	if err != nil {
		return "", fmt.Errorf("invalid %s: %w", name, err)
	}
	return param, nil
}

// addQueryParam appends value to query in OpenAPI "form" style.
func addQueryParam(query url.Values, name string, value any) error {
	fragment, err := runtime.StyleParamWithLocation("form", true, name, runtime.ParamLocationQuery, value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	parsed, err := url.ParseQuery(fragment)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	for key, values := range parsed {
		for _, v := range values {
			query.Add(key, v)
		}
	}
	return nil
}
