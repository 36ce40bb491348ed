package engine

import "github.com/NethermindEth/starkexec/core"

type EventListener interface {
	OnExecute(typ core.TransactionType, steps uint64)
	OnRevert(typ core.TransactionType)
}

type SelectiveListener struct {
	OnExecuteCb func(typ core.TransactionType, steps uint64)
	OnRevertCb  func(typ core.TransactionType)
}

func (l *SelectiveListener) OnExecute(typ core.TransactionType, steps uint64) {
	if l.OnExecuteCb != nil {
		l.OnExecuteCb(typ, steps)
	}
}

func (l *SelectiveListener) OnRevert(typ core.TransactionType) {
	if l.OnRevertCb != nil {
		l.OnRevertCb(typ)
	}
}
