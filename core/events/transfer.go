package events

import (
	"math/big"

	"cafichain/core/types"
	"cafichain/crypto"
)

const (
	// TypeTransfer is emitted for every token balance movement.
	TypeTransfer = "bank.transfer"
	// TypeApproval is emitted when an allowance is set.
	TypeApproval = "bank.approval"
	// TypeMint is emitted when new supply is credited at genesis or by an admin.
	TypeMint = "bank.mint"
)

type Transfer struct {
	Token  string
	From   crypto.Address
	To     crypto.Address
	Amount *big.Int
	// Spender is set when the movement consumed an allowance.
	Spender crypto.Address
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	attrs := map[string]string{}
	if token := normalizeAsset(e.Token); token != "" {
		attrs["token"] = token
	}
	attrs["from"] = formatAddress(e.From)
	attrs["to"] = formatAddress(e.To)
	attrs["amount"] = formatAmount(e.Amount)
	if spender := formatAddress(e.Spender); spender != "" {
		attrs["spender"] = spender
	}
	return &types.Event{Type: TypeTransfer, Attributes: attrs}
}

type Approval struct {
	Token   string
	Owner   crypto.Address
	Spender crypto.Address
	Amount  *big.Int
}

func (Approval) EventType() string { return TypeApproval }

func (e Approval) Event() *types.Event {
	return &types.Event{Type: TypeApproval, Attributes: map[string]string{
		"token":   normalizeAsset(e.Token),
		"owner":   formatAddress(e.Owner),
		"spender": formatAddress(e.Spender),
		"amount":  formatAmount(e.Amount),
	}}
}

type Mint struct {
	Token  string
	To     crypto.Address
	Amount *big.Int
}

func (Mint) EventType() string { return TypeMint }

func (e Mint) Event() *types.Event {
	return &types.Event{Type: TypeMint, Attributes: map[string]string{
		"token":  normalizeAsset(e.Token),
		"to":     formatAddress(e.To),
		"amount": formatAmount(e.Amount),
	}}
}
