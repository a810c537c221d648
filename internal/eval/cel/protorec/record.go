package protorec

import (
	"strings"

	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/types"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

const nullValueEnum protoreflect.FullName = "google.protobuf.NullValue"

// Record is a protobuf message seen as a record value.
type Record struct {
	reg *Registry
	msg protoreflect.Message
}

func (m *Record) Type() *types.Type {
	return types.NewRecord(m.TypeName())
}

func (m *Record) TypeName() string {
	return string(m.msg.Descriptor().FullName())
}

// Field returns the field value, or its default when unset. Unset wrapper
// fields read as null.
func (m *Record) Field(name string) (value.Value, bool) {
	fd := m.msg.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		return nil, false
	}
	if !fd.IsList() && !fd.IsMap() && fd.Message() != nil && !m.msg.Has(fd) {
		switch full := fd.Message().FullName(); {
		case full == "google.protobuf.Value" || full == "google.protobuf.Any":
			return value.NullValue, true
		case wrapperTypes[full] != nil:
			return value.NullValue, true
		}
	}
	return m.reg.fieldValue(fd, m.msg.Get(fd)), true
}

func (m *Record) IsSet(name string) (bool, bool) {
	fd := m.msg.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		return false, false
	}
	return m.msg.Has(fd), true
}

func (m *Record) Equal(other value.Record) bool {
	o, ok := other.(*Record)
	if !ok {
		return false
	}
	return proto.Equal(m.msg.Interface(), o.msg.Interface())
}

// Native returns the underlying message.
func (m *Record) Native() any {
	return m.msg.Interface()
}

// Message returns the underlying message.
func (m *Record) Message() proto.Message {
	return m.msg.Interface()
}

func (m *Record) String() string {
	return m.TypeName() + "{" + strings.TrimSpace(prototext.MarshalOptions{}.Format(m.msg.Interface())) + "}"
}

// anyValue is the content of a google.protobuf.Any. It behaves as the
// packed value.
type anyValue struct {
	typeURL string
	packed  value.Value
}

func (a *anyValue) Type() *types.Type  { return a.packed.Type() }
func (a *anyValue) Unbox() value.Value { return a.packed }
func (a *anyValue) String() string     { return value.Format(a.packed) }

// messageValue converts a message, mapping well-known types to their
// value form.
func (r *Registry) messageValue(id int64, msg protoreflect.Message) value.Value {
	md := msg.Descriptor()
	fields := md.Fields()
	get := func(name protoreflect.Name) protoreflect.Value {
		return msg.Get(fields.ByName(name))
	}
	switch md.FullName() {
	case types.DurationTypeName:
		d, err := value.NewDuration(get("seconds").Int(), get("nanos").Int())
		if err != nil {
			return value.WrapError(id, err)
		}
		return d
	case types.TimestampTypeName:
		ts, err := value.NewTimestamp(get("seconds").Int(), get("nanos").Int())
		if err != nil {
			return value.WrapError(id, err)
		}
		return ts
	case "google.protobuf.Any":
		return r.unpackAny(id, get("type_url").String(), get("value").Bytes())
	case "google.protobuf.Struct":
		return r.fieldValue(fields.ByName("fields"), get("fields"))
	case "google.protobuf.ListValue":
		return r.fieldValue(fields.ByName("values"), get("values"))
	case "google.protobuf.Value":
		oneof := md.Oneofs().ByName("kind")
		fd := msg.WhichOneof(oneof)
		if fd == nil {
			return value.NullValue
		}
		return r.fieldValue(fd, msg.Get(fd))
	}
	if _, ok := wrapperTypes[md.FullName()]; ok {
		fd := fields.ByName("value")
		return r.fieldValue(fd, msg.Get(fd))
	}
	return &Record{reg: r, msg: msg}
}

func (r *Registry) unpackAny(id int64, typeURL string, data []byte) value.Value {
	name := typeURL
	if i := strings.LastIndexByte(typeURL, '/'); i >= 0 {
		name = typeURL[i+1:]
	}
	md, ok := r.findMessage(name)
	if !ok {
		return value.TypeNotFound(id, name)
	}
	msg := dynamicpb.NewMessage(md)
	if err := proto.Unmarshal(data, msg); err != nil {
		return value.NewError(id, "failed to unpack %s: %v", name, err)
	}
	packed := r.messageValue(id, msg)
	if value.IsError(packed) {
		return packed
	}
	return &anyValue{typeURL: typeURL, packed: packed}
}

func (r *Registry) fieldValue(fd protoreflect.FieldDescriptor, v protoreflect.Value) value.Value {
	switch {
	case fd.IsMap():
		var entries []value.Entry
		v.Map().Range(func(k protoreflect.MapKey, mv protoreflect.Value) bool {
			entries = append(entries, value.Entry{
				Key:   r.scalarValue(fd.MapKey(), k.Value()),
				Value: r.scalarValue(fd.MapValue(), mv),
			})
			return true
		})
		m, err := value.NewMap(0, entries...)
		if err != nil {
			return err
		}
		return m
	case fd.IsList():
		l := v.List()
		elems := make([]value.Value, l.Len())
		for i := range elems {
			elems[i] = r.scalarValue(fd, l.Get(i))
		}
		return value.NewList(elems...)
	}
	return r.scalarValue(fd, v)
}

func (r *Registry) scalarValue(fd protoreflect.FieldDescriptor, v protoreflect.Value) value.Value {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		return value.Bool(v.Bool())
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind,
		protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return value.Int(v.Int())
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind, protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return value.Uint(v.Uint())
	case protoreflect.FloatKind, protoreflect.DoubleKind:
		return value.Double(v.Float())
	case protoreflect.StringKind:
		return value.String(v.String())
	case protoreflect.BytesKind:
		return value.Bytes(v.Bytes())
	case protoreflect.EnumKind:
		if fd.Enum().FullName() == nullValueEnum {
			return value.NullValue
		}
		return value.Int(v.Enum())
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return r.messageValue(0, v.Message())
	}
	return value.NewError(0, "unsupported field kind: %s", fd.Kind())
}
