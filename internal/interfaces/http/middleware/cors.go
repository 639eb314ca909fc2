// internal/interfaces/http/middleware/cors.go
package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-api/internal/config"
)

// CORS allows the configured origins with credentials. A "*" entry echoes any
// origin back, since browsers reject a literal wildcard on credentialed requests.
func CORS(cfg *config.Config) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:     cfg.Security.CORSAllowedMethods,
		AllowHeaders:     cfg.Security.CORSAllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}

	switch {
	case len(cfg.Security.CORSAllowedOrigins) == 0:
		corsConfig.AllowOriginFunc = func(string) bool { return false }
	case allowsAnyOrigin(cfg.Security.CORSAllowedOrigins):
		corsConfig.AllowOriginFunc = func(string) bool { return true }
	default:
		corsConfig.AllowOrigins = cfg.Security.CORSAllowedOrigins
		corsConfig.AllowWildcard = true
	}

	return cors.New(corsConfig)
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
