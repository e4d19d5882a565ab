package protocol

import (
	"errors"
	"fmt"

	"github.com/Layr-Labs/exchange-partner-go/pkg/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// ErrMalformedMessage is returned when bytes do not decode against the schema
var ErrMalformedMessage = errors.New("malformed protocol message")

const (
	schemaPackage   = "ledger_swap"
	udecimalName    = "UDecimal"
	sellMessageName = "NewSellResponse"
	fundMessageName = "NewFundResponse"
)

var schema = mustBuildSchema()

type protocolSchema struct {
	file     protoreflect.FileDescriptor
	udecimal protoreflect.MessageDescriptor
	sell     protoreflect.MessageDescriptor
	fund     protoreflect.MessageDescriptor
}

func mustBuildSchema() *protocolSchema {
	file, err := protodesc.NewFile(protocolFileDescriptorProto(), new(protoregistry.Files))
	if err != nil {
		panic(fmt.Sprintf("invalid protocol schema: %v", err))
	}
	msgs := file.Messages()
	return &protocolSchema{
		file:     file,
		udecimal: msgs.ByName(udecimalName),
		sell:     msgs.ByName(sellMessageName),
		fund:     msgs.ByName(fundMessageName),
	}
}

func protocolFileDescriptorProto() *descriptorpb.FileDescriptorProto {
	str := descriptorpb.FieldDescriptorProto_TYPE_STRING
	byt := descriptorpb.FieldDescriptorProto_TYPE_BYTES
	u32 := descriptorpb.FieldDescriptorProto_TYPE_UINT32

	udecimalField := fieldProto("out_amount", int32(sellOutAmount), descriptorpb.FieldDescriptorProto_TYPE_MESSAGE)
	udecimalField.TypeName = proto.String("." + schemaPackage + "." + udecimalName)

	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("protocol.proto"),
		Package: proto.String(schemaPackage),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String(udecimalName),
				Field: []*descriptorpb.FieldDescriptorProto{
					fieldProto("coefficient", int32(udecimalCoefficient), byt),
					fieldProto("exponent", int32(udecimalExponent), u32),
				},
			},
			{
				Name: proto.String(sellMessageName),
				Field: []*descriptorpb.FieldDescriptorProto{
					fieldProto("trader_email", int32(sellTraderEmail), str),
					fieldProto("in_currency", int32(sellInCurrency), str),
					fieldProto("in_amount", int32(sellInAmount), byt),
					fieldProto("in_address", int32(sellInAddress), str),
					fieldProto("out_currency", int32(sellOutCurrency), str),
					udecimalField,
					fieldProto("device_transaction_id", int32(sellDeviceTransactionID), byt),
				},
			},
			{
				Name: proto.String(fundMessageName),
				Field: []*descriptorpb.FieldDescriptorProto{
					fieldProto("user_id", int32(fundUserID), str),
					fieldProto("account_name", int32(fundAccountName), str),
					fieldProto("in_currency", int32(fundInCurrency), str),
					fieldProto("in_amount", int32(fundInAmount), byt),
					fieldProto("in_address", int32(fundInAddress), str),
					fieldProto("device_transaction_id", int32(fundDeviceTransactionID), byt),
				},
			},
		},
	}
}

func fieldProto(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   typ.Enum(),
	}
}

// FileDescriptor exposes the ledger_swap schema the codec targets
func FileDescriptor() protoreflect.FileDescriptor {
	return schema.file
}

// Unmarshal decodes a response of the given kind using the schema, the way
// the verifying side reads it. Unknown fields are rejected.
func Unmarshal(kind types.ExchangeKind, data []byte) (Message, error) {
	var md protoreflect.MessageDescriptor
	switch kind {
	case types.ExchangeKindFund:
		md = schema.fund
	case types.ExchangeKindSell:
		md = schema.sell
	default:
		return nil, fmt.Errorf("%w: cannot decode exchangeType '%s'", types.ErrUnsupportedExchangeKind, kind)
	}

	msg := dynamicpb.NewMessage(md)
	if err := proto.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if len(msg.GetUnknown()) > 0 {
		return nil, fmt.Errorf("%w: %s carries unknown fields", ErrMalformedMessage, md.Name())
	}

	switch kind {
	case types.ExchangeKindFund:
		return fundFromDynamic(msg), nil
	default:
		out, err := sellFromDynamic(msg)
		if err != nil {
			return nil, err
		}
		return out, nil
	}
}

func fundFromDynamic(msg *dynamicpb.Message) *FundResponse {
	return &FundResponse{
		UserID:              getString(msg, "user_id"),
		AccountName:         getString(msg, "account_name"),
		InCurrency:          getString(msg, "in_currency"),
		InAmount:            getBytes(msg, "in_amount"),
		InAddress:           getString(msg, "in_address"),
		DeviceTransactionID: getBytes(msg, "device_transaction_id"),
	}
}

func sellFromDynamic(msg *dynamicpb.Message) (*SellResponse, error) {
	out := &SellResponse{
		TraderEmail:         getString(msg, "trader_email"),
		InCurrency:          getString(msg, "in_currency"),
		InAmount:            getBytes(msg, "in_amount"),
		InAddress:           getString(msg, "in_address"),
		OutCurrency:         getString(msg, "out_currency"),
		DeviceTransactionID: getBytes(msg, "device_transaction_id"),
	}

	fd := msg.Descriptor().Fields().ByName("out_amount")
	if !msg.Has(fd) {
		return nil, fmt.Errorf("%w: %s has no out_amount", ErrMalformedMessage, sellMessageName)
	}
	sub := msg.Get(fd).Message()
	if len(sub.GetUnknown()) > 0 {
		return nil, fmt.Errorf("%w: %s carries unknown fields", ErrMalformedMessage, udecimalName)
	}
	subFields := sub.Descriptor().Fields()
	out.OutAmount = UDecimal{
		Coefficient: cloneBytes(sub.Get(subFields.ByName("coefficient")).Bytes()),
		Exponent:    uint32(sub.Get(subFields.ByName("exponent")).Uint()),
	}
	return out, nil
}

func getString(msg *dynamicpb.Message, name protoreflect.Name) string {
	return msg.Get(msg.Descriptor().Fields().ByName(name)).String()
}

func getBytes(msg *dynamicpb.Message, name protoreflect.Name) []byte {
	b := msg.Get(msg.Descriptor().Fields().ByName(name)).Bytes()
	if len(b) == 0 {
		return nil
	}
	return cloneBytes(b)
}

// Describe flattens a message into printable fields; byte fields are hex encoded.
func Describe(m Message) map[string]string {
	switch msg := m.(type) {
	case *FundResponse:
		return map[string]string{
			"exchangeType":        msg.Kind().String(),
			"userId":              msg.UserID,
			"accountName":         msg.AccountName,
			"inCurrency":          msg.InCurrency,
			"inAmount":            hexutil.Encode(msg.InAmount),
			"inAddress":           msg.InAddress,
			"deviceTransactionId": hexutil.Encode(msg.DeviceTransactionID),
		}
	case *SellResponse:
		out := map[string]string{
			"exchangeType":        msg.Kind().String(),
			"traderEmail":         msg.TraderEmail,
			"inCurrency":          msg.InCurrency,
			"inAmount":            hexutil.Encode(msg.InAmount),
			"inAddress":           msg.InAddress,
			"outCurrency":         msg.OutCurrency,
			"deviceTransactionId": hexutil.Encode(msg.DeviceTransactionID),
		}
		if d, err := msg.OutAmount.Decimal(); err == nil {
			out["outAmount"] = d.String()
		}
		return out
	default:
		return nil
	}
}
