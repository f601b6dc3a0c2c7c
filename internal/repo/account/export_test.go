package account

import "github.com/mkrupp/wardrobe/internal/infra/logging"

func (r *SQLiteAccountRepository) SetLogger(log logging.Logger) {
	r.log = log
}
