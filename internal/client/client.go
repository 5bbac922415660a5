package client

import (
	"io"
	"net/http"
)

type Client struct {
	*http.Client
	FCMKey        string
	FCMEndpoint   string
	SendGridKey   string
	EmailEndpoint string
	Logger        logger
}

type logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Errorf(format string, v ...any)
}

func newRequest(method string, url string, body io.Reader) (*http.Request, error) {
	r, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, err
	}
	r.Header.Set("Accept", "application/json")
	return r, nil
}
