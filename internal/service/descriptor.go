package service

import (
	"fmt"

	"google.golang.org/genproto/googleapis/api/annotations"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

const (
	// DatagridServiceName is the fully-qualified name of the datagrid service.
	DatagridServiceName = "datagrid.v1.DatagridService"

	// DatagridServiceListProcedure is the Connect procedure of DatagridService.List.
	DatagridServiceListProcedure = "/datagrid.v1.DatagridService/List"

	// ListHTTPPath is the REST route transcoded onto List.
	ListHTTPPath = "/v1/datagrid:list"
)

// The service takes and returns google.protobuf.Struct, so its descriptor is
// assembled here and registered like a generated file would register it.
var datagridServiceDescriptor = mustRegisterDatagridFile()

func datagridFileProto() *descriptorpb.FileDescriptorProto {
	listOptions := &descriptorpb.MethodOptions{}
	proto.SetExtension(listOptions, annotations.E_Http, &annotations.HttpRule{
		Pattern: &annotations.HttpRule_Post{Post: ListHTTPPath},
		Body:    "*",
	})

	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("datagrid/v1/datagrid.proto"),
		Package: proto.String("datagrid.v1"),
		Dependency: []string{
			"google/api/annotations.proto",
			"google/protobuf/struct.proto",
		},
		Syntax: proto.String("proto3"),
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("DatagridService"),
			Method: []*descriptorpb.MethodDescriptorProto{{
				Name:       proto.String("List"),
				InputType:  proto.String(".google.protobuf.Struct"),
				OutputType: proto.String(".google.protobuf.Struct"),
				Options:    listOptions,
			}},
		}},
	}
}

func mustRegisterDatagridFile() protoreflect.ServiceDescriptor {
	file, err := protodesc.NewFile(datagridFileProto(), protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("datagrid descriptor: %v", err))
	}
	if err := protoregistry.GlobalFiles.RegisterFile(file); err != nil {
		panic(fmt.Sprintf("register datagrid descriptor: %v", err))
	}
	return file.Services().ByName("DatagridService")
}
