package authsvc

import "github.com/mkrupp/wardrobe/internal/infra/logging"

func (ht *HTTPTransport) SetLogger(log logging.Logger) {
	ht.log = log
}
