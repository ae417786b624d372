package client

import (
	"strconv"

	"github.com/sebas/gophone/transport"
)

func newTestSocket() (*transport.Socket, error) {
	return transport.Bind("127.0.0.1", 0)
}

func portOf(p int) string {
	return strconv.Itoa(p)
}
