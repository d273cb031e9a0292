package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/ValentinKolb/kvmux/lib/store"
	"github.com/ValentinKolb/kvmux/rpc/common"
)

func NewKVServerAdapter() IRPCServerAdapter {
	return &kvServerAdapterImpl{}
}

type kvServerAdapterImpl struct{}

func (adapter *kvServerAdapterImpl) Handle(ctx context.Context, req *common.Message, kv IKVStore) *common.Message {
	if kv == nil {
		return common.NewErrorResponse("handler: store is nil")
	}

	switch req.MsgType {
	case common.MsgTKVSet:
		var err error
		if req.Ok {
			err = kv.Set(ctx, req.Namespace, req.Key, req.Value)
		} else {
			err = kv.Delete(ctx, req.Namespace, req.Key)
		}
		return common.NewSetResponse(err)
	case common.MsgTKVGet:
		val, err := kv.Get(ctx, req.Namespace, req.Key)
		if errors.Is(err, store.ErrNoSuchKey) {
			return common.NewGetResponse(nil, false, nil)
		}
		if err != nil {
			return common.NewGetResponse(nil, false, err)
		}
		if val == nil {
			val = []byte{}
		}
		return common.NewGetResponse(val, true, nil)
	case common.MsgTKVListKeys:
		keys, err := kv.Keys(ctx, req.Namespace)
		return common.NewListKeysResponse(keys, err)
	default:
		return common.NewErrorResponse(
			fmt.Sprintf("unsupported message type: %s", req.MsgType),
		)
	}
}
