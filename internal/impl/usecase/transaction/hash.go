package impl_transaction

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	port_transaction "github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/usecase/transaction"
)

func HashCreateTransactionInput(in port_transaction.CreateTransactionInput) string {
	payer := strings.ToLower(strings.TrimSpace(in.PayerID))
	payee := strings.ToLower(strings.TrimSpace(in.PayeeID))

	payload := fmt.Sprintf("%s|%s|%s", payer, payee, in.Amount.String())

	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
