// Package node defines the shared shape of an addressable identd node.
package node

import "github.com/gin-gonic/gin"

// Node is one running participant with a stable identifier and an HTTP
// management surface.
type Node interface {
	NodeID() string
	Kind() string
	HTTPRouter() *gin.Engine
}

// Identity is the read-only view consumers need when they only care about
// who the node is, not how it is served.
type Identity interface {
	NodeID() string
}
