package handlers

import (
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
)

// maxBodyBytes bounds submitted documents.
const maxBodyBytes = 32 << 20

func requestDBC(c *gin.Context) dbctx.Context {
	return dbctx.Context{Ctx: c.Request.Context()}
}

func readBody(c *gin.Context) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
	if err != nil {
		return nil, apierr.Wrap(apierr.PayloadParsing, err, "could not read request body")
	}
	if len(raw) > maxBodyBytes {
		return nil, apierr.E(apierr.PayloadParsing, "request body exceeds %d bytes", maxBodyBytes)
	}
	return raw, nil
}

func queryBool(c *gin.Context, name string, def bool) (bool, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, apierr.E(apierr.MalformedParameter, "query parameter %s must be a boolean, got %q", name, raw)
	}
	return v, nil
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def, apierr.E(apierr.MalformedParameter, "query parameter %s must be an integer, got %q", name, raw)
	}
	return v, nil
}

// queryList accepts repeated and comma separated values.
func queryList(c *gin.Context, name string) []string {
	var out []string
	for _, raw := range c.QueryArray(name) {
		for _, part := range strings.Split(raw, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
