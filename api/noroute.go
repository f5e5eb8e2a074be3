package api

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
)

var versionRegexp = regexp.MustCompile(`^/v[0-9]+/`)

func (a *API) noRoute(c *gin.Context) {
	if !versionRegexp.MatchString(c.Request.URL.Path) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Version not provided, please provide a valid version in the path such as v1",
		})
		return
	}
	c.JSON(http.StatusNotFound, gin.H{
		"error": "404 page not found",
	})
}
