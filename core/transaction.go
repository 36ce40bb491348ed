package core

import (
	"errors"

	"github.com/NethermindEth/starkexec/core/crypto"
	"github.com/NethermindEth/starkexec/core/felt"
)

type TransactionType uint8

const (
	TxnInvalid TransactionType = iota
	TxnDeclare
	TxnDeploy
	TxnDeployAccount
	TxnInvoke
)

func (t TransactionType) String() string {
	switch t {
	case TxnDeclare:
		return "DECLARE"
	case TxnDeploy:
		return "DEPLOY"
	case TxnDeployAccount:
		return "DEPLOY_ACCOUNT"
	case TxnInvoke:
		return "INVOKE"
	default:
		return "<unknown>"
	}
}

func (t TransactionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TransactionType) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"DECLARE"`:
		*t = TxnDeclare
	case `"DEPLOY"`:
		*t = TxnDeploy
	case `"DEPLOY_ACCOUNT"`:
		*t = TxnDeployAccount
	case `"INVOKE"`, `"INVOKE_FUNCTION"`:
		*t = TxnInvoke
	default:
		return errors.New("unknown TransactionType")
	}
	return nil
}

// Transaction is the closed set of executable transaction variants. The
// execution driver matches on the concrete type exhaustively.
type Transaction interface {
	Type() TransactionType
	Hash() *felt.Felt
	Signature() []*felt.Felt
}

var (
	_ Transaction = (*InvokeTransaction)(nil)
	_ Transaction = (*DeclareTransaction)(nil)
	_ Transaction = (*DeployTransaction)(nil)
	_ Transaction = (*DeployAccountTransaction)(nil)
)

type InvokeTransaction struct {
	// The address of the account initiating the transaction.
	SenderAddress *felt.Felt `json:"sender_address"`
	// The arguments passed to the account's __execute__ function.
	CallData []*felt.Felt `json:"calldata"`
	// Additional information given by the sender, used to validate the transaction.
	TransactionSignature []*felt.Felt `json:"signature"`
	// The maximum fee that the sender is willing to pay for the transaction.
	MaxFee *felt.Felt `json:"max_fee"`
	// The transaction nonce.
	Nonce *felt.Felt `json:"nonce"`
	// The transaction's version.
	Version *felt.Felt `json:"version"`
}

func (i *InvokeTransaction) Type() TransactionType {
	return TxnInvoke
}

func (i *InvokeTransaction) Hash() *felt.Felt {
	return crypto.PedersenArray(
		new(felt.Felt).SetBytes([]byte("invoke")),
		i.Version,
		i.SenderAddress,
		crypto.PedersenArray(i.CallData...),
		i.MaxFee,
		i.Nonce,
	)
}

func (i *InvokeTransaction) Signature() []*felt.Felt {
	return i.TransactionSignature
}

type DeclareTransaction struct {
	// The hash of the declared class.
	ClassHash *felt.Felt `json:"class_hash"`
	// The class body being declared. Carried alongside the hash so the
	// execution core can register it without a class-definition loader.
	Class *CompiledClass `json:"-"`
	// The address of the account initiating the transaction.
	SenderAddress *felt.Felt `json:"sender_address"`
	// The maximum fee that the sender is willing to pay for the transaction.
	MaxFee *felt.Felt `json:"max_fee"`
	// Additional information given by the sender, used to validate the transaction.
	TransactionSignature []*felt.Felt `json:"signature"`
	// The transaction nonce.
	Nonce *felt.Felt `json:"nonce"`
	// The transaction's version.
	Version *felt.Felt `json:"version"`
}

func (d *DeclareTransaction) Type() TransactionType {
	return TxnDeclare
}

func (d *DeclareTransaction) Hash() *felt.Felt {
	return crypto.PedersenArray(
		new(felt.Felt).SetBytes([]byte("declare")),
		d.Version,
		d.SenderAddress,
		d.ClassHash,
		d.MaxFee,
		d.Nonce,
	)
}

func (d *DeclareTransaction) Signature() []*felt.Felt {
	return d.TransactionSignature
}

type DeployTransaction struct {
	// A random number used to distinguish between different instances of the contract.
	ContractAddressSalt *felt.Felt `json:"contract_address_salt"`
	// The hash of the class which defines the contract's functionality.
	ClassHash *felt.Felt `json:"class_hash"`
	// The arguments passed to the constructor during deployment.
	ConstructorCallData []*felt.Felt `json:"constructor_calldata"`
	// The transaction's version.
	Version *felt.Felt `json:"version"`
}

func (d *DeployTransaction) Type() TransactionType {
	return TxnDeploy
}

// ContractAddress derives the address the transaction deploys to. Legacy
// deploy transactions always use the zero caller address.
func (d *DeployTransaction) ContractAddress() *felt.Felt {
	return ContractAddress(&felt.Zero, d.ClassHash, d.ContractAddressSalt, d.ConstructorCallData)
}

func (d *DeployTransaction) Hash() *felt.Felt {
	return crypto.PedersenArray(
		new(felt.Felt).SetBytes([]byte("deploy")),
		d.Version,
		d.ContractAddress(),
		crypto.PedersenArray(d.ConstructorCallData...),
	)
}

func (d *DeployTransaction) Signature() []*felt.Felt {
	return make([]*felt.Felt, 0)
}

type DeployAccountTransaction struct {
	DeployTransaction
	// The maximum fee that the sender is willing to pay for the transaction.
	MaxFee *felt.Felt `json:"max_fee"`
	// Additional information given by the sender, used to validate the transaction.
	TransactionSignature []*felt.Felt `json:"signature"`
	// The transaction nonce.
	Nonce *felt.Felt `json:"nonce"`
}

func (d *DeployAccountTransaction) Type() TransactionType {
	return TxnDeployAccount
}

func (d *DeployAccountTransaction) Hash() *felt.Felt {
	return crypto.PedersenArray(
		new(felt.Felt).SetBytes([]byte("deploy_account")),
		d.Version,
		d.ContractAddress(),
		crypto.PedersenArray(d.ConstructorCallData...),
		d.MaxFee,
		d.Nonce,
	)
}

func (d *DeployAccountTransaction) Signature() []*felt.Felt {
	return d.TransactionSignature
}
