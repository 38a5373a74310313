package middleware

import (
	"net"
	"net/http"
)

// ClientIP возвращает IP клиента из RemoteAddr.
// За прокси RemoteAddr заполняет chi middleware.RealIP.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
