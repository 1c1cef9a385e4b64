package tronscan

// StatusSuccess — статус окончательно исполненной транзакции в ленте.
const StatusSuccess = "SUCCESS"

// Transaction — одна транзакция из ленты TronScan.
// Amount приходит в микроединицах (масштаб 10^6).
type Transaction struct {
	Hash        string `json:"hash"`
	ContractRet string `json:"contractRet" validate:"required"`
	Amount      int64  `json:"amount" validate:"gte=0"`
}

// Settled сообщает, исполнена ли транзакция окончательно.
// Отменённые, ожидающие и неуспешные транзакции не учитываются.
func (t Transaction) Settled() bool {
	return t.ContractRet == StatusSuccess
}

// transactionList — обёртка ответа /api/transaction.
type transactionList struct {
	Total int           `json:"total"`
	Data  []Transaction `json:"data"`
}
