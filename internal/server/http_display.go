package server

import (
	"fmt"
	"io"
	"os"
)

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.writeServerInfo(os.Stdout)
}

func (s *Server) writeServerInfo(w io.Writer) {
	s.displayEndpoints(w)
	s.displayAuthInfo(w)
	s.displayRequestLimitInfo(w)
	s.displayRateLimitInfo(w)
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints(w io.Writer) {
	fmt.Fprintln(w, "Available endpoints:")
	fmt.Fprintln(w, "  GET    /health                - Health check")
	fmt.Fprintln(w, "  GET    /stats                 - Server statistics")
	fmt.Fprintln(w, "  GET    /state                 - Session view and notifications")
	fmt.Fprintln(w, "  PUT    /inputs/{group}/mode   - Switch between file and text")
	fmt.Fprintln(w, "  PUT    /inputs/{group}/text   - Set pasted text")
	fmt.Fprintln(w, "  POST   /inputs/{group}/file   - Upload a PDF")
	fmt.Fprintln(w, "  DELETE /inputs/{group}/file   - Clear the selected PDF")
	fmt.Fprintln(w, "  POST   /analyze               - Run the analysis")
	fmt.Fprintln(w, "  POST   /skills/{name}         - Look up a missing skill")
	fmt.Fprintln(w, "  POST   /modal/close           - Dismiss the skill modal")
	fmt.Fprintln(w, "  GET    /report                - Download the PDF report")
	fmt.Fprintln(w, "  GET    /explain               - Explain every missing skill")
}

// displayAuthInfo shows authentication configuration
func (s *Server) displayAuthInfo(w io.Writer) {
	if n := s.apiKeyCount(); n > 0 {
		fmt.Fprintf(w, "API authentication: ENABLED (%d keys configured)\n", n)
		fmt.Fprintln(w, "Include 'X-API-Key: <your-key>' header in session requests")
	} else {
		fmt.Fprintln(w, "API authentication: DISABLED (no API keys configured)")
		fmt.Fprintln(w, "WARNING: session endpoints are publicly accessible!")
	}
	if s.KeyWatcher != nil {
		fmt.Fprintln(w, "  - Keys rotate from Vault")
	}
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo(w io.Writer) {
	if s.MaxRequestSize > 0 {
		fmt.Fprintf(w, "Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Fprintln(w, "Request size limit: DISABLED")
		fmt.Fprintln(w, "WARNING: No request size limits configured!")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo(w io.Writer) {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Fprintf(w, "Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByAPIKey {
			fmt.Fprintln(w, "  - Per API key rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			fmt.Fprintln(w, "  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Fprintln(w, "Rate limiting: DISABLED")
	}
}
