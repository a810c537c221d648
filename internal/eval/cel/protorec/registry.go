package protorec

import (
	"fmt"
	"sync"

	"github.com/jhump/protoreflect/desc/protoparse"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/types"
	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

// Registry resolves protobuf message and enum types by fully qualified
// name and converts between messages and values.
//
// Registration and lookups may run concurrently.
type Registry struct {
	mu       sync.RWMutex
	files    *protoregistry.Files
	messages map[string]protoreflect.MessageDescriptor
	enums    map[string]int64
}

// NewRegistry creates a registry that knows the well-known types and the
// files declaring msgs.
func NewRegistry(msgs ...proto.Message) (*Registry, error) {
	r := &Registry{
		files:    new(protoregistry.Files),
		messages: map[string]protoreflect.MessageDescriptor{},
		enums:    map[string]int64{},
	}
	wellKnown := []proto.Message{
		&anypb.Any{}, &durationpb.Duration{}, &timestamppb.Timestamp{},
		&emptypb.Empty{}, &structpb.Struct{}, &wrapperspb.BoolValue{},
	}
	if err := r.RegisterMessages(append(wellKnown, msgs...)...); err != nil {
		return nil, err
	}
	return r, nil
}

// RegisterMessages registers the files declaring msgs.
func (r *Registry) RegisterMessages(msgs ...proto.Message) error {
	for _, m := range msgs {
		if err := r.RegisterFile(m.ProtoReflect().Descriptor().ParentFile()); err != nil {
			return err
		}
	}
	return nil
}

// RegisterFile registers fd and, first, every file it imports.
func (r *Registry) RegisterFile(fd protoreflect.FileDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerFile(fd)
}

func (r *Registry) registerFile(fd protoreflect.FileDescriptor) error {
	if _, err := r.files.FindFileByPath(fd.Path()); err == nil {
		return nil
	}
	imports := fd.Imports()
	for i := 0; i < imports.Len(); i++ {
		if err := r.registerFile(imports.Get(i).FileDescriptor); err != nil {
			return err
		}
	}
	if err := r.files.RegisterFile(fd); err != nil {
		return fmt.Errorf("failed to register %s: %w", fd.Path(), err)
	}
	r.indexMessages(fd.Messages())
	r.indexEnums(fd.Enums())
	return nil
}

func (r *Registry) indexMessages(mds protoreflect.MessageDescriptors) {
	for i := 0; i < mds.Len(); i++ {
		md := mds.Get(i)
		if md.IsMapEntry() {
			continue
		}
		r.messages[string(md.FullName())] = md
		r.indexMessages(md.Messages())
		r.indexEnums(md.Enums())
	}
}

// indexEnums records enum constants under the enum's name, e.g.
// acme.v1.Color.RED, rather than protobuf's sibling scoping.
func (r *Registry) indexEnums(eds protoreflect.EnumDescriptors) {
	for i := 0; i < eds.Len(); i++ {
		ed := eds.Get(i)
		vals := ed.Values()
		for j := 0; j < vals.Len(); j++ {
			v := vals.Get(j)
			r.enums[string(ed.FullName())+"."+string(v.Name())] = int64(v.Number())
		}
	}
}

// LoadFiles parses .proto sources at runtime and registers them. names
// are resolved against importPaths.
func (r *Registry) LoadFiles(importPaths []string, names ...string) error {
	parser := protoparse.Parser{ImportPaths: importPaths}
	fds, err := parser.ParseFiles(names...)
	if err != nil {
		return fmt.Errorf("failed to parse proto files: %w", err)
	}
	for _, fd := range fds {
		if err := r.RegisterFile(fd.UnwrapFile()); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) findMessage(name string) (protoreflect.MessageDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	md, ok := r.messages[name]
	return md, ok
}

// FindType returns the type of a registered message.
func (r *Registry) FindType(name string) (*types.Type, bool) {
	md, ok := r.findMessage(name)
	if !ok {
		return nil, false
	}
	return messageType(md), true
}

// FindFieldType returns the declared type of a message field.
func (r *Registry) FindFieldType(typeName, field string) (*types.Type, bool) {
	md, ok := r.findMessage(typeName)
	if !ok {
		return nil, false
	}
	fd := md.Fields().ByName(protoreflect.Name(field))
	if fd == nil {
		return nil, false
	}
	return fieldType(fd), true
}

// FindEnumValue returns the number of an enum constant.
func (r *Registry) FindEnumValue(name string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.enums[name]
	return v, ok
}

// NativeToValue converts protobuf messages and defers everything else to
// the plain Go conversions.
func (r *Registry) NativeToValue(v any) value.Value {
	switch v := v.(type) {
	case proto.Message:
		return r.messageValue(0, v.ProtoReflect())
	case protoreflect.Message:
		return r.messageValue(0, v)
	}
	return value.NativeToValue(r, v)
}

// NewRecord creates a message of the named type. Only registered types can
// be created; well-known types yield their value form.
func (r *Registry) NewRecord(id int64, typeName string, fields map[string]value.Value) value.Value {
	md, ok := r.findMessage(typeName)
	if !ok {
		return value.TypeNotFound(id, typeName)
	}
	msg := dynamicpb.NewMessage(md)
	for name, v := range fields {
		fd := md.Fields().ByName(protoreflect.Name(name))
		if fd == nil {
			return value.FieldNotFound(id, name)
		}
		if err := r.setField(msg, fd, v); err != nil {
			return value.NewError(id, "field %s: %v", name, err)
		}
	}
	return r.messageValue(id, msg)
}

func messageType(md protoreflect.MessageDescriptor) *types.Type {
	switch md.FullName() {
	case "google.protobuf.Any", "google.protobuf.Value":
		return types.Dyn
	case "google.protobuf.Struct":
		return types.NewMap(types.String, types.Dyn)
	case "google.protobuf.ListValue":
		return types.NewList(types.Dyn)
	}
	if _, ok := wrapperTypes[md.FullName()]; ok {
		return types.Dyn
	}
	return types.NewRecord(string(md.FullName()))
}

// wrapperTypes maps wrapper messages to the type of their value field.
var wrapperTypes = map[protoreflect.FullName]*types.Type{
	"google.protobuf.BoolValue":   types.Bool,
	"google.protobuf.BytesValue":  types.Bytes,
	"google.protobuf.DoubleValue": types.Double,
	"google.protobuf.FloatValue":  types.Double,
	"google.protobuf.Int32Value":  types.Int,
	"google.protobuf.Int64Value":  types.Int,
	"google.protobuf.StringValue": types.String,
	"google.protobuf.UInt32Value": types.Uint,
	"google.protobuf.UInt64Value": types.Uint,
}

func fieldType(fd protoreflect.FieldDescriptor) *types.Type {
	switch {
	case fd.IsMap():
		return types.NewMap(scalarType(fd.MapKey()), scalarType(fd.MapValue()))
	case fd.IsList():
		return types.NewList(scalarType(fd))
	}
	return scalarType(fd)
}

func scalarType(fd protoreflect.FieldDescriptor) *types.Type {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		return types.Bool
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind,
		protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind,
		protoreflect.EnumKind:
		if fd.Kind() == protoreflect.EnumKind && fd.Enum().FullName() == nullValueEnum {
			return types.Null
		}
		return types.Int
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind, protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return types.Uint
	case protoreflect.FloatKind, protoreflect.DoubleKind:
		return types.Double
	case protoreflect.StringKind:
		return types.String
	case protoreflect.BytesKind:
		return types.Bytes
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return messageType(fd.Message())
	}
	return types.Dyn
}
