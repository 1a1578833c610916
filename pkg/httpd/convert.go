package httpd

import (
	"encoding/json"

	"github.com/shapestone/shape-core/pkg/ast"
)

var zeroPos = ast.Position{}

// RequestToNode converts a Request to an AST ObjectNode with the properties
// method, uri, version, headers, params and files.
func RequestToNode(req *Request) ast.SchemaNode {
	props := map[string]ast.SchemaNode{
		"method":  ast.NewLiteralNode(req.Method, zeroPos),
		"uri":     ast.NewLiteralNode(req.URI, zeroPos),
		"version": ast.NewLiteralNode(req.Version, zeroPos),
		"headers": stringMapToNode(req.Headers),
		"params":  stringMapToNode(req.Params),
		"files":   stringMapToNode(req.Files),
	}
	return ast.NewObjectNode(props, zeroPos)
}

// ResponseToNode converts the head of a Response to an AST ObjectNode. The
// headers are an array of key/value objects, in order.
func ResponseToNode(resp *Response) ast.SchemaNode {
	props := map[string]ast.SchemaNode{
		"status":   ast.NewLiteralNode(resp.Status, zeroPos),
		"mimeType": ast.NewLiteralNode(resp.MimeType, zeroPos),
		"headers":  headersToNode(resp.Headers),
	}
	return ast.NewObjectNode(props, zeroPos)
}

// NodeToInterface converts an AST node to native Go types.
func NodeToInterface(node ast.SchemaNode) interface{} {
	switch n := node.(type) {
	case *ast.LiteralNode:
		return n.Value()
	case *ast.ArrayDataNode:
		elements := n.Elements()
		arr := make([]interface{}, len(elements))
		for i, elem := range elements {
			arr[i] = NodeToInterface(elem)
		}
		return arr
	case *ast.ObjectNode:
		props := n.Properties()
		m := make(map[string]interface{}, len(props))
		for k, v := range props {
			m[k] = NodeToInterface(v)
		}
		return m
	default:
		return nil
	}
}

func stringMapToNode(m map[string]string) ast.SchemaNode {
	props := make(map[string]ast.SchemaNode, len(m))
	for k, v := range m {
		props[k] = ast.NewLiteralNode(v, zeroPos)
	}
	return ast.NewObjectNode(props, zeroPos)
}

func headersToNode(headers Headers) ast.SchemaNode {
	elements := make([]ast.SchemaNode, len(headers))
	for i, h := range headers {
		elements[i] = ast.NewObjectNode(map[string]ast.SchemaNode{
			"key":   ast.NewLiteralNode(h.Key, zeroPos),
			"value": ast.NewLiteralNode(h.Value, zeroPos),
		}, zeroPos)
	}
	return ast.NewArrayDataNode(elements, zeroPos)
}

// EchoHandler returns a Handler that answers every request with a JSON dump
// of its method, URI, version, headers, parameters and uploaded files.
func EchoHandler() Handler {
	return HandlerFunc(func(req *Request) (*Response, error) {
		data, err := json.MarshalIndent(NodeToInterface(RequestToNode(req)), "", "  ")
		if err != nil {
			return nil, err
		}
		return NewResponse(StatusOK, MimeJSON, NewBytesSource(data)), nil
	})
}

